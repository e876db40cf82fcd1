package physopt

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"mit.edu/dsg/physopt/catalog"
	"mit.edu/dsg/physopt/codec"
	"mit.edu/dsg/physopt/common"
	"mit.edu/dsg/physopt/config"
	"mit.edu/dsg/physopt/optimizer"
	"mit.edu/dsg/physopt/planner"
)

// Optimizer is the top-level container: a catalog to resolve scans against,
// the settings, and the physical rules run in order over every plan.
type Optimizer struct {
	Catalog *catalog.Catalog
	Config  *config.Config
	Logger  *zap.Logger
	Stats   *optimizer.RuleStats
	rules   []optimizer.PhysicalOptimizerRule
}

// NewOptimizer wires the rule set. cat may be nil when every plan is
// self-describing; cfg and log default to config.Default and a no-op logger.
func NewOptimizer(cat *catalog.Catalog, cfg *config.Config, log *zap.Logger) *Optimizer {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = zap.NewNop()
	}
	stats := optimizer.NewRuleStats()
	return &Optimizer{
		Catalog: cat,
		Config:  cfg,
		Logger:  log,
		Stats:   stats,
		rules: []optimizer.PhysicalOptimizerRule{
			optimizer.NewEnforceSorting(log, stats),
		},
	}
}

// OpenCatalog loads the catalog stored under dir, or an empty one if dir
// holds none yet.
func OpenCatalog(dir string) (*catalog.Catalog, error) {
	cat, err := catalog.NewCatalog(catalog.NewDiskCatalogManager(dir))
	if err != nil {
		return nil, errors.Wrapf(err, "opening catalog in %s", dir)
	}
	return cat, nil
}

// Optimize runs every rule over plan and verifies the result. The input plan
// is never modified.
func (o *Optimizer) Optimize(plan planner.PlanNode) (planner.PlanNode, error) {
	run := o.Logger.With(zap.String("run", uuid.NewString()))
	run.Info("optimizing plan", zap.Int("nodes", countNodes(plan)))

	for _, rule := range o.rules {
		rewritten, err := rule.Optimize(plan, &o.Config.Optimizer)
		if err != nil {
			run.Error("rule failed", zap.String("rule", rule.Name()), zap.Error(err))
			return nil, errors.Wrapf(err, "rule %s", rule.Name())
		}
		if rule.SchemaCheck() && !plan.OutputSchema().Equal(rewritten.OutputSchema()) {
			return nil, common.NewPlanError(common.InvalidPlanError,
				"rule %s changed the schema from %s to %s", rule.Name(), plan.OutputSchema(), rewritten.OutputSchema())
		}
		plan = rewritten
	}

	if err := optimizer.CheckPlan(plan); err != nil {
		run.Error("optimized plan is invalid", zap.Error(err))
		return nil, err
	}
	run.Info("plan optimized", zap.Int("nodes", countNodes(plan)))
	return plan, nil
}

// OptimizeDocument decodes a YAML plan, optimizes it and returns the result.
func (o *Optimizer) OptimizeDocument(doc []byte) (planner.PlanNode, error) {
	plan, err := codec.Decode(doc, o.Catalog)
	if err != nil {
		return nil, err
	}
	return o.Optimize(plan)
}

func countNodes(plan planner.PlanNode) int {
	n := 1
	for _, c := range plan.Children() {
		n += countNodes(c)
	}
	return n
}
