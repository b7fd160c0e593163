package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/serenity-care/dispatch/config"
	"github.com/serenity-care/dispatch/core/detect"
	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/infra/logger"
	"github.com/serenity-care/dispatch/infra/memstore"
)

var visitsPath string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run one coverage detection pass and print the gaps as JSON",
	RunE:  runDetect,
}

func init() {
	detectCmd.Flags().StringVar(&visitsPath, "visits", "", "JSON file with a visit list to scan")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	schedule := memstore.NewScheduleStore()
	if visitsPath != "" {
		data, err := os.ReadFile(visitsPath)
		if err != nil {
			return fmt.Errorf("read visits: %w", err)
		}
		var visits []model.Visit
		if err := json.Unmarshal(data, &visits); err != nil {
			return fmt.Errorf("parse visits: %w", err)
		}
		for _, v := range visits {
			schedule.SeedVisit(v)
		}
	}

	detector, err := detect.New(schedule, cfg.Detect, logger.New("detect-command"))
	if err != nil {
		return err
	}
	gaps, err := detector.Detect(cmd.Context(), cfg.OrgID, time.Now())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(gaps)
}
