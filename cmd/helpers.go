package cmd

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/api"
	"github.com/shopsphere/shopctl/pkg/console"
	"github.com/shopsphere/shopctl/pkg/mutation"
	"github.com/shopsphere/shopctl/pkg/output"
	"github.com/shopsphere/shopctl/pkg/view"
)

// confirm asks a yes/no question on the command's input. --yes answers it.
func confirm(cmd *cobra.Command, prompt string) bool {
	if yesFlag {
		return true
	}
	fmt.Fprintf(out(cmd), "%s [y/N]: ", prompt)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Scan()
	return strings.ToLower(strings.TrimSpace(scanner.Text())) == "y"
}

// checkedActions are compared with the current record before they run.
var checkedActions = map[string]bool{"block": true, "unblock": true, "approve": true, "reject": true}

// runAction executes one admin action end to end: dry-run, confirmation,
// the state check, the request, the journal entry and the printed result.
func runAction(cmd *cobra.Command, entity, action, target string, params mutation.Params) error {
	ctx := cmd.Context()
	p, err := mutation.NewPending(entity, action, target, params, time.Now())
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintf(out(cmd), "(dry-run) would %s\n", p.Describe())
		return nil
	}

	c, err := newMutationConsole(ctx)
	if err != nil {
		return err
	}
	if checkedActions[action] {
		rec, err := c.Current(ctx, entity, target)
		if err != nil {
			return fmt.Errorf("failed to %s: %w", p.Describe(), err)
		}
		if rec == nil {
			logger.Warn("target not on the loaded page, state not checked", "entity", entity, "id", target)
		}
		if err := console.CheckTransition(entity, action, rec); err != nil {
			return err
		}
	}
	if !p.Confirmed {
		if !confirm(cmd, fmt.Sprintf("%s?", capitalize(p.Describe()))) {
			fmt.Fprintln(out(cmd), "Aborted.")
			return nil
		}
		p.Confirmed = true
	}

	res, err := c.Execute(ctx, p)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", p.Describe(), err)
	}
	if res.ReloadErr != nil {
		logger.Warn("reload after action failed", "entity", entity, "err", res.ReloadErr)
	}
	msg := res.Fields.String("message")
	if msg == "" {
		msg = "done"
	}
	fmt.Fprintf(out(cmd), "%s: %s.\n", capitalize(p.Describe()), strings.TrimSuffix(msg, "."))
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// listSpec describes a list command for one collection.
type listSpec struct {
	entity      string
	noun        string
	columns     []output.Column
	statusField string
	// serverPaging sends page and page_size to the backend.
	serverPaging bool
	// extra adds command specific flags to the query.
	extra func(cmd *cobra.Command, q api.Query) api.Query
}

// listFlags are the view flags shared by every list command.
type listFlags struct {
	search   string
	status   string
	where    string
	sort     string
	page     int
	pageSize int
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "case-insensitive substring match")
	cmd.Flags().StringVar(&f.status, "status", "", "only show records with this status")
	cmd.Flags().StringVar(&f.where, "where", "", "filter expression, e.g. 'rating >= 4'")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort by field, prefix with - for descending")
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "records per page (default from config)")
}

func newListCmd(spec listSpec) *cobra.Command {
	var f listFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %s", spec.noun),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, spec, f)
		},
	}
	f.register(cmd)
	return cmd
}

func runList(cmd *cobra.Command, spec listSpec, f listFlags) error {
	where, err := view.CompileWhere(f.where)
	if err != nil {
		return err
	}
	size := f.pageSize
	if size <= 0 {
		size = cfg.PageSize
	}
	opts := api.ListOptions{Status: f.status, Search: f.search}
	if spec.serverPaging {
		opts.Page, opts.PageSize = f.page, size
	}
	q, err := api.QueryFrom(opts)
	if err != nil {
		return err
	}
	if spec.extra != nil {
		q = spec.extra(cmd, q)
	}

	c := newConsole()
	st, _ := c.Store(spec.entity)
	if err := st.Load(cmd.Context(), q); err != nil {
		return fmt.Errorf("failed to list %s: %w", spec.noun, err)
	}
	snap := st.Snapshot()

	filter := view.Filter{Search: f.search, Tab: f.status, TabField: spec.statusField, Where: where}
	rows, err := filter.Apply(snap.Items)
	if err != nil {
		return err
	}
	if key, desc := view.ParseSort(f.sort); key != "" {
		rows = view.Sort(rows, key, desc)
	}

	var footer string
	if spec.serverPaging {
		footer = fmt.Sprintf("page %d of %d (%s total)", f.page, max(api.TotalPages(snap.Total, size), 1), output.Count(int64(snap.Total)))
	} else {
		var pages int
		rows, pages = view.Paginate(rows, f.page, size)
		if pages > 1 {
			footer = fmt.Sprintf("page %d of %d", min(max(f.page, 1), pages), pages)
		}
	}
	if parts := statsLine(snap.Stats.Keys(), snap.Stats); parts != "" && footer != "" {
		footer += "  " + parts
	} else if parts != "" {
		footer = parts
	}

	fmt.Fprint(out(cmd), formatter.Format(output.Table{Columns: spec.columns, Rows: rows, Footer: footer}))
	return nil
}

func statsLine(keys []string, stats map[string]int) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, output.Count(int64(stats[k]))))
	}
	return strings.Join(parts, ", ")
}

// newDescribeCmd fetches and prints one record.
func newDescribeCmd(entity, noun string) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <id>",
		Short: fmt.Sprintf("Show detailed info for a %s", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api.ValidateID(args[0]); err != nil {
				return fmt.Errorf("invalid %s id: %w", noun, err)
			}
			rec, err := newConsole().Get(cmd.Context(), entity, args[0])
			if err != nil {
				return fmt.Errorf("failed to describe %s: %w", noun, err)
			}
			fmt.Fprint(out(cmd), formatter.Format(rec))
			return nil
		},
	}
}

// newActionCmd runs action against the id given as the only argument.
func newActionCmd(entity, action, short string) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api.ValidateID(args[0]); err != nil {
				return fmt.Errorf("invalid id: %w", err)
			}
			return runAction(cmd, entity, action, args[0], mutation.Params{Reason: reason})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "reason recorded with the action")
	return cmd
}

// parseRate validates a commission percentage.
func parseRate(s string) (float64, error) {
	r, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q: %w", s, err)
	}
	if err := api.ValidateRate(r); err != nil {
		return 0, err
	}
	return r, nil
}

func accountColumns() []output.Column {
	return []output.Column{
		{Header: "ID", Key: "id"},
		{Header: "NAME", Value: displayName},
		{Header: "EMAIL", Key: "email"},
		{Header: "STATUS", Key: "status"},
		{Header: "PHONE", Key: "phone", Wide: true},
	}
}

func requestColumns() []output.Column {
	return []output.Column{
		{Header: "ID", Key: "id"},
		{Header: "NAME", Value: displayName},
		{Header: "EMAIL", Key: "email"},
		{Header: "STATUS", Key: "approval_status"},
		{Header: "SUBMITTED", Value: output.AgoField("submitted_at", time.Now), Wide: true},
	}
}

func displayName(r api.Record) string {
	for _, k := range []string{"store_name", "name"} {
		if s := r.String(k); s != "" {
			return s
		}
	}
	return "-"
}
