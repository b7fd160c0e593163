package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/serenity-care/dispatch/core/model"
	"github.com/serenity-care/dispatch/core/route"
	"github.com/serenity-care/dispatch/core/travelcache"
	"github.com/serenity-care/dispatch/infra/logger"
	"github.com/serenity-care/dispatch/infra/memstore"
)

var (
	routeWorker    string
	routeLocations string
	routeMode      string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Optimize the visit order for one worker's day",
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().StringVar(&routeWorker, "worker", "", "worker id (home base)")
	routeCmd.Flags().StringVar(&routeLocations, "locations", "", "JSON file with worker and client locations")
	routeCmd.Flags().StringVar(&routeMode, "mode", "driving", "travel mode: driving, transit or walking")
	_ = routeCmd.MarkFlagRequired("worker")
	_ = routeCmd.MarkFlagRequired("locations")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(routeLocations)
	if err != nil {
		return fmt.Errorf("read locations: %w", err)
	}
	var locs []model.Location
	if err := json.Unmarshal(data, &locs); err != nil {
		return fmt.Errorf("parse locations: %w", err)
	}

	cache := travelcache.New()
	store := memstore.NewLocationStore(cache)
	var clients []string
	for _, loc := range locs {
		if err := store.Put(context.Background(), loc); err != nil {
			return fmt.Errorf("location %s: %w", loc.Subject, err)
		}
		if loc.Subject.Kind == model.KindClient {
			clients = append(clients, loc.Subject.ID)
		}
	}

	optimizer, err := route.New(store, cache, logger.New("route-command"))
	if err != nil {
		return err
	}
	plan, err := optimizer.Plan(cmd.Context(), routeWorker, clients, model.Mode(routeMode))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(plan)
}
