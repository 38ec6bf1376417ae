package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gdfplan/internal/cost"
	"gdfplan/internal/diagfmt"
	"gdfplan/internal/driver"
	"gdfplan/internal/lops"
	"gdfplan/internal/pipeline"
)

var errPlanFailed = errors.New("compilation failed")

var planCmd = &cobra.Command{
	Use:   "plan [flags] <file.gdf.toml>...",
	Short: "Build, lower and cost program descriptions",
	Long: `Compile each program description: build its global data-flow graph,
lower every operator onto its backend and estimate the program cost.
Settings are read from gdfplan.toml ([compile]) and overridden by flags.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	addPlanFlags(planCmd)
}

func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().String("exec", "auto", "operator placement (auto|cp|mr|spark)")
	cmd.Flags().String("distributed", "mr", "backend auto placement falls back to (mr|spark)")
	cmd.Flags().Int64("mem-budget-mb", driver.DefaultMemBudget>>20, "memory budget for control-program operators in auto placement")
	cmd.Flags().Bool("strict", false, "reject loop-updated variables without a binding after the body")
	cmd.Flags().String("cost", cost.NumJobs.String(), "cost estimator (num-jobs|static)")
	cmd.Flags().Bool("no-cost", false, "skip cost estimation")
	cmd.Flags().Int("jobs", 0, "max files compiled in parallel (0=auto)")
	cmd.Flags().Bool("cache", false, "reuse plans from the on-disk plan cache")
	cmd.Flags().String("cache-dir", "", "plan cache directory (default: user cache dir)")
	cmd.Flags().String("export", "", "write one msgpack plan file per program into this directory")
	cmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	cmd.Flags().String("format", "pretty", "diagnostics format (pretty|json)")
	cmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
}

type planSettings struct {
	opts     driver.Options
	jobs     int
	cache    bool
	cacheDir string
	export   string
}

// resolvePlanSettings merges the config file with the command flags; flags
// set explicitly win.
func resolvePlanSettings(cmd *cobra.Command, cfg compileConfig) (planSettings, error) {
	flags := cmd.Flags()
	var s planSettings

	execStr := cfg.Exec
	if execStr == "" || flags.Changed("exec") {
		execStr, _ = flags.GetString("exec")
	}
	mode, err := driver.ParseExecMode(execStr)
	if err != nil {
		return s, err
	}
	s.opts.Exec = mode

	distStr, _ := flags.GetString("distributed")
	dist, err := lops.ParseExecType(distStr)
	if err != nil || dist == lops.ExecCP {
		return s, fmt.Errorf("invalid --distributed value %q (expected mr|spark)", distStr)
	}
	s.opts.Distributed = dist

	budget := cfg.MemBudgetMB
	if budget == 0 || flags.Changed("mem-budget-mb") {
		budget, _ = flags.GetInt64("mem-budget-mb")
	}
	if budget <= 0 {
		return s, fmt.Errorf("memory budget must be positive, got %d MB", budget)
	}
	s.opts.MemBudget = budget << 20

	s.opts.Strict = cfg.Strict
	if flags.Changed("strict") {
		s.opts.Strict, _ = flags.GetBool("strict")
	}

	costStr := cfg.Cost
	if costStr == "" || flags.Changed("cost") {
		costStr, _ = flags.GetString("cost")
	}
	if s.opts.Cost, err = cost.ParseCostType(costStr); err != nil {
		return s, err
	}
	s.opts.SkipCost, _ = flags.GetBool("no-cost")

	s.jobs = cfg.Jobs
	if flags.Changed("jobs") {
		s.jobs, _ = flags.GetInt("jobs")
	}
	s.cache = cfg.Cache
	if flags.Changed("cache") {
		s.cache, _ = flags.GetBool("cache")
	}
	s.cacheDir = cfg.CacheDir
	if flags.Changed("cache-dir") {
		s.cacheDir, _ = flags.GetString("cache-dir")
	}
	s.export = cfg.Export
	if flags.Changed("export") {
		s.export, _ = flags.GetString("export")
	}

	if s.opts.MaxDiagnostics, err = cmd.Root().PersistentFlags().GetInt("max-diagnostics"); err != nil {
		return s, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	return s, nil
}

// finalStage is the last stage a successful file reaches under s.
func (s planSettings) finalStage() pipeline.Stage {
	switch {
	case s.export != "":
		return pipeline.StageExport
	case s.opts.SkipCost:
		return pipeline.StageLower
	default:
		return pipeline.StageCost
	}
}

func runPlan(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	configPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, _, err := resolveConfig(configPath)
	if err != nil {
		return err
	}
	settings, err := resolvePlanSettings(cmd, cfg.Compile)
	if err != nil {
		return err
	}

	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}

	req := &pipeline.CompileRequest{
		Files:     args,
		Options:   settings.opts,
		Jobs:      settings.jobs,
		ExportDir: settings.export,
	}
	if settings.cache {
		if req.Cache, err = driver.OpenPlanCache(settings.cacheDir, "gdfplan"); err != nil {
			return fmt.Errorf("failed to open plan cache: %w", err)
		}
	}

	var res pipeline.CompileResult
	if shouldUseTUI(uiModeValue) && !quiet {
		res, err = runCompileWithUI(cmd.Context(), "gdfplan plan", args, settings.finalStage(), req)
	} else {
		res, err = pipeline.Compile(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !quiet {
		for i := range res.Files {
			fr := &res.Files[i]
			if fr.Payload == nil {
				continue
			}
			if err := fr.Payload.Dump(out); err != nil {
				return err
			}
			if fr.Cached {
				fmt.Fprintln(out, "(from plan cache)")
			}
			if fr.Exported != "" {
				fmt.Fprintf(out, "exported %s\n", fr.Exported)
			}
		}
	}

	bag := res.Bag(settings.opts.MaxDiagnostics)
	bag.Sort()
	switch format {
	case "json":
		err = diagfmt.JSON(out, bag, diagfmt.JSONOpts{IncludeNotes: withNotes, Max: settings.opts.MaxDiagnostics})
	default:
		color, cerr := useColor(cmd, os.Stderr)
		if cerr != nil {
			return cerr
		}
		err = diagfmt.Pretty(cmd.ErrOrStderr(), bag, diagfmt.PrettyOpts{
			Color:     color,
			ShowNotes: withNotes,
			ShowTitle: withNotes,
		})
	}
	if err != nil {
		return err
	}

	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
	}
	if res.HasErrors() {
		return errPlanFailed
	}
	return nil
}
