package main

import (
	"fmt"
	"io"

	"github.com/bnema/webkit-content-blocker/internal/converter"
	"github.com/bnema/webkit-content-blocker/internal/encoder"
	"github.com/bnema/webkit-content-blocker/internal/models"
	"github.com/bnema/webkit-content-blocker/internal/parser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a filter list read on stdin to WebKit JSON",
		Long: `Convert reads a uBlock/ABP filter list on stdin and writes one content
blocker part to stdout.  Lists larger than --max-rules are split; use --part
to select which one to write.`,
		Args: cobra.NoArgs,
		RunE: a.runConvert,
	}

	addConversionFlags(cmd)
	cmd.Flags().Int("part", 1, "part to write when the list is split")
	cmd.Flags().Int("max-rules", converter.MaxRulesPerFile, "maximum rules per part")
	cmd.Flags().String("name", "rules", "base name used to report parts")

	return cmd
}

func (a *app) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Parse and convert a filter list read on stdin and report statistics",
		Args:  cobra.NoArgs,
		RunE:  a.runCheck,
	}

	addConversionFlags(cmd)

	return cmd
}

func addConversionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("selectors-per-rule", 1, "generic cosmetic selectors grouped per rule")
	cmd.Flags().Bool("dedupe", true, "drop rules identical to an earlier one")
}

// convertInput runs the parse and convert pipeline over r and logs statistics
func (a *app) convertInput(r io.Reader) ([]models.Rule, error) {
	p := parser.New()
	filters, err := p.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}
	pStats := p.Stats()

	c := converter.New(
		converter.WithLogger(a.log),
		converter.WithSelectorsPerRule(a.cfg.Convert.SelectorsPerRule),
	)
	rules := c.Convert(filters)
	cStats := c.Stats()

	a.log.Info("converted filter list",
		zap.Int("lines", pStats.Total),
		zap.Int("network", pStats.Network),
		zap.Int("exceptions", pStats.Exception),
		zap.Int("cosmetic", pStats.Cosmetic),
		zap.Int("rules", len(rules)),
		zap.Int("skipped", pStats.Unsupported+cStats.Skipped),
	)

	for reason, count := range pStats.SkipReasons {
		a.log.Info("parse skips", zap.String("reason", reason), zap.Int("count", count))
	}
	for reason, count := range cStats.SkipReasons {
		a.log.Info("convert skips", zap.String("reason", reason), zap.Int("count", count))
	}

	if a.cfg.Convert.Deduplicate {
		before := len(rules)
		rules = converter.Deduplicate(rules)
		a.log.Debug("deduplicated rules", zap.Int("removed", before-len(rules)))
	}

	return rules, nil
}

func (a *app) runConvert(cmd *cobra.Command, _ []string) error {
	part, _ := cmd.Flags().GetInt("part")
	name, _ := cmd.Flags().GetString("name")

	rules, err := a.convertInput(cmd.InOrStdin())
	if err != nil {
		return err
	}

	parts := converter.NewSplitter(a.cfg.Output.MaxRulesPerFile).Split(rules, name)
	if part < 1 || part > len(parts) {
		return fmt.Errorf("part %d out of range: list has %d part(s)", part, len(parts))
	}

	selected := parts[part-1]
	a.log.Info("writing part",
		zap.String("name", selected.Name),
		zap.Int("rules", len(selected.Rules)),
		zap.Int("parts", len(parts)),
	)

	_, err = cmd.OutOrStdout().Write(encoder.Encode(selected.Rules))

	return err
}

func (a *app) runCheck(cmd *cobra.Command, _ []string) error {
	_, err := a.convertInput(cmd.InOrStdin())

	return err
}

func (a *app) newRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Write a list holding a single rule built from flags",
		Long: `Rule builds one trigger and one action from its flags.  Flags that are not
given leave the matching field out of the rule.`,
		Args: cobra.NoArgs,
		RunE: a.runRule,
	}

	cmd.Flags().String("url-filter", "", "url-filter regular expression (default .*)")
	cmd.Flags().Bool("case-sensitive", false, "url-filter-is-case-sensitive, requires --url-filter")
	cmd.Flags().StringSlice("resource-type", nil, "resource types")
	cmd.Flags().StringSlice("load-type", nil, "load types (first-party, third-party)")
	addDomainFlags(cmd)
	cmd.Flags().String("action", string(models.ActionBlock), "action type")
	cmd.Flags().String("selector", "", "CSS selector, for css-display-none only")

	return cmd
}

func addDomainFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("if-domain", nil, "only apply on these domains")
	cmd.Flags().StringSlice("unless-domain", nil, "never apply on these domains")
}

// domainOptions returns the trigger options for the domain flags that were set
func domainOptions(cmd *cobra.Command) []models.TriggerOption {
	var opts []models.TriggerOption
	if cmd.Flags().Changed("if-domain") {
		domains, _ := cmd.Flags().GetStringSlice("if-domain")
		opts = append(opts, models.WithIfDomain(domains...))
	}
	if cmd.Flags().Changed("unless-domain") {
		domains, _ := cmd.Flags().GetStringSlice("unless-domain")
		opts = append(opts, models.WithUnlessDomain(domains...))
	}
	return opts
}

func (a *app) runRule(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()

	var opts []models.TriggerOption
	if flags.Changed("url-filter") {
		filter, _ := flags.GetString("url-filter")
		if !converter.ValidateRegex(filter) {
			a.log.Warn("url-filter may be rejected by WebKit",
				zap.String("url_filter", filter),
				zap.String("issues", converter.DescribeIssues(converter.CheckPattern(filter))),
			)
		}
		opts = append(opts, models.WithURLFilter(filter))
	}
	if flags.Changed("case-sensitive") {
		cs, _ := flags.GetBool("case-sensitive")
		opts = append(opts, models.WithCaseSensitive(cs))
	}
	if flags.Changed("resource-type") {
		names, _ := flags.GetStringSlice("resource-type")
		types := make([]models.ResourceType, 0, len(names))
		for _, n := range names {
			types = append(types, models.ResourceType(n))
		}
		opts = append(opts, models.WithResourceTypes(types...))
	}
	if flags.Changed("load-type") {
		names, _ := flags.GetStringSlice("load-type")
		types := make([]models.LoadType, 0, len(names))
		for _, n := range names {
			types = append(types, models.LoadType(n))
		}
		opts = append(opts, models.WithLoadTypes(types...))
	}
	opts = append(opts, domainOptions(cmd)...)

	trigger, err := models.NewTrigger(opts...)
	if err != nil {
		return err
	}

	actionType, _ := flags.GetString("action")
	var actionOpts []models.ActionOption
	if flags.Changed("selector") {
		selector, _ := flags.GetString("selector")
		actionOpts = append(actionOpts, models.WithSelector(selector))
	}

	action, err := models.NewAction(models.ActionType(actionType), actionOpts...)
	if err != nil {
		return err
	}

	return writeRules(cmd, models.NewRule(trigger, action))
}

func (a *app) newHideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hide SELECTOR...",
		Short: "Write a list holding one css-display-none rule hiding the selectors",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runHide,
	}

	addDomainFlags(cmd)

	return cmd
}

func runHide(cmd *cobra.Command, args []string) error {
	trigger, err := models.NewTrigger(domainOptions(cmd)...)
	if err != nil {
		return err
	}

	action := models.NewCSSHideAction(args[0])
	if len(args) > 1 {
		action = models.NewCSSHideActions(args...)
	}

	return writeRules(cmd, models.NewRule(trigger, action))
}

func writeRules(cmd *cobra.Command, rules ...models.Rule) error {
	_, err := cmd.OutOrStdout().Write(encoder.Encode(rules))
	return err
}
