package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/metricboard/engine/internal/catalog"
	"github.com/metricboard/engine/internal/dashboard"
	"github.com/metricboard/engine/internal/export"
	"github.com/metricboard/engine/internal/models"
	"github.com/metricboard/engine/internal/services"
)

var (
	demoName     string
	demoTemplate string
	snapshotDate string
	showDate     string
	exportFormat string
	exportDate   string
	exportOut    string
)

var seedDemoCmd = &cobra.Command{
	Use:     "seed-demo",
	Short:   "Create a project filled with demo metrics",
	Example: `  dashctl seed-demo --template launch --name "Lançamento Março"`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := instance.Service.CreateProject(cmd.Context(), &services.CreateProjectInput{
			Name:     demoName,
			Template: demoTemplate,
			Demo:     true,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), p.ID)
		return nil
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := instance.Service.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTEMPLATE\tSOURCE")
		for _, p := range items {
			src := p.SourceURL
			if p.Demo {
				src = "demo"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Template, src)
		}
		return tw.Flush()
	},
}

var importCmd = &cobra.Command{
	Use:   "import <project-id> <file.csv>",
	Short: "Import metric values from a CSV export using the project's column mapping",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = os.Stdin
		if args[1] != "-" {
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		metrics, err := instance.Dashboards.ImportCSV(cmd.Context(), args[0], r)
		if err != nil {
			return err
		}
		return printMetrics(cmd.OutOrStdout(), metrics)
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync <project-id>",
	Short: "Pull the project's configured metric feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		metrics, err := instance.Dashboards.SyncFeed(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printMetrics(cmd.OutOrStdout(), metrics)
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <project-id>",
	Short: "Capture the live metrics as a dated snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var date models.Date
		if snapshotDate != "" {
			d, err := models.ParseDate(snapshotDate)
			if err != nil {
				return err
			}
			date = d
		}
		snap, err := instance.Dashboards.CaptureSnapshot(cmd.Context(), args[0], date)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  ROI %s\n", snap.Date,
			catalog.Format(snap.Revenue, models.ValueCurrency),
			catalog.Format(snap.ROI, models.ValuePercent))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <project-id> <tab-id>",
	Short: "Print the projection of a tab as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := project(cmd, args[0], args[1], showDate)
		if err != nil {
			return err
		}
		return export.Write(cmd.OutOrStdout(), export.JSON, p)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <project-id> <tab-id>",
	Short: "Write a tab as json, csv or xlsx",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		p, err := project(cmd, args[0], args[1], exportDate)
		if err != nil {
			return err
		}
		out := exportOut
		if out == "" {
			out = format.Filename(p)
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := export.Write(f, format, p); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	seedDemoCmd.Flags().StringVar(&demoName, "name", "Demo", "Project name")
	seedDemoCmd.Flags().StringVar(&demoTemplate, "template", catalog.TemplateLaunch, "Template: launch, perpetual or subscription")
	snapshotCmd.Flags().StringVar(&snapshotDate, "date", "", "Snapshot date YYYY-MM-DD (default today)")
	showCmd.Flags().StringVar(&showDate, "date", "", "Replay the snapshot of YYYY-MM-DD")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format: json, csv or xlsx")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Replay the snapshot of YYYY-MM-DD")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default <tab>[-date].<format>)")
}

func project(cmd *cobra.Command, projectID, tabID, date string) (dashboard.Projection, error) {
	mode := dashboard.Live()
	if date != "" {
		d, err := models.ParseDate(date)
		if err != nil {
			return dashboard.Projection{}, err
		}
		mode = dashboard.ReplayAt(d)
	}
	sess, err := instance.Dashboards.Session(cmd.Context(), projectID)
	if err != nil {
		return dashboard.Projection{}, err
	}
	return sess.ProjectTab(cmd.Context(), tabID, mode)
}

func printMetrics(w io.Writer, metrics []models.Metric) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(metrics)
}
