package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Skufu/diagnosis-dispatcher/internal/diagnosis"
	"github.com/Skufu/diagnosis-dispatcher/internal/report"
)

func cliDispatcher(cmd *cobra.Command) (*diagnosis.Dispatcher, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	return buildDispatcher(cmd.Context(), cfg, zap.NewNop())
}

func newCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories and whether their models loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cliDispatcher(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tFIELDS\tAVAILABLE\tERROR")
			for _, st := range d.Registry().Status() {
				desc, _ := d.Describe(st.Key)
				fmt.Fprintf(w, "%s\t%d\t%t\t%s\n", st.Key, len(desc.Fields), st.Available, st.Error)
			}
			return w.Flush()
		},
	}
}

func newDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <category>",
		Short: "Print a category's fields in input order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := cliDispatcher(cmd)
			if err != nil {
				return err
			}
			desc, err := d.Describe(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(desc)
		},
	}
}

func newPredictCmd() *cobra.Command {
	var (
		sets       []string
		withReport bool
	)
	cmd := &cobra.Command{
		Use:   "predict <category>",
		Short: "Validate inputs and run the category's model",
		Example: "  diagnosis-dispatcher predict diabetes --set Pregnancies=2 --set Glucose=120 --set BloodPressure=70 \\\n" +
			"    --set SkinThickness=20 --set Insulin=80 --set BMI=25 --set PedigreeFunction=0.5 --set Age=30",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseSets(sets)
			if err != nil {
				return err
			}
			d, err := cliDispatcher(cmd)
			if err != nil {
				return err
			}
			res, err := d.Diagnose(cmd.Context(), args[0], values)
			if err != nil {
				return err
			}
			if withReport {
				desc, err := d.Describe(args[0])
				if err != nil {
					return err
				}
				text, err := report.Render(desc, res, time.Now())
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), text)
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field value as Name=value (repeatable)")
	cmd.Flags().BoolVar(&withReport, "report", false, "Print a plain-text report instead of JSON")
	return cmd
}

// parseSets keeps values as strings; the dispatcher coerces them.
func parseSets(sets []string) (map[string]any, error) {
	values := make(map[string]any, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, want Name=value", s)
		}
		values[name] = value
	}
	return values, nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	return nil
}
