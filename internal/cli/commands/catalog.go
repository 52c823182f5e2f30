package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/client"
	"github.com/carrent-dev/carrent/internal/guard"
)

// NewProvidersCmd creates the providers command
func NewProvidersCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "List rental providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			providers, err := env.API.ListProviders(cmd.Context())
			if err != nil {
				return err
			}
			if len(providers) == 0 {
				fmt.Fprintln(env.stdout(), "No providers found.")
				return nil
			}
			printProviders(env.stdout(), providers)
			return nil
		},
	}
	return withRoute(cmd, guard.PathHome)
}

// NewCarsCmd creates the cars command
func NewCarsCmd(env *Env) *cobra.Command {
	var providerID string

	cmd := &cobra.Command{
		Use:   "cars",
		Short: "List cars available for rent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cars []client.Car
				err  error
			)
			if providerID != "" {
				cars, err = env.API.ListProviderCars(cmd.Context(), providerID)
			} else {
				cars, err = env.API.ListCars(cmd.Context())
			}
			if err != nil {
				return err
			}

			if len(cars) == 0 {
				fmt.Fprintln(env.stdout(), "No cars found.")
				return nil
			}
			printCars(env.stdout(), cars)
			return nil
		},
	}

	cmd.Flags().StringVar(&providerID, "provider", "", "Only list cars of this provider")

	return withRoute(cmd, guard.PathHome)
}

func printProviders(out io.Writer, providers []client.Provider) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tADDRESS\tTELEPHONE")
	fmt.Fprintln(w, "──\t────\t───────\t─────────")
	for _, p := range providers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Address, p.Telephone)
	}
	w.Flush()
}

func printCars(out io.Writer, cars []client.Car) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tPRICE/DAY\tPROVIDER\tAVAILABLE")
	fmt.Fprintln(w, "──\t────\t────\t─────────\t────────\t─────────")
	for _, c := range cars {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\n",
			c.ID,
			c.Name,
			c.Type,
			c.PricePerDay,
			providerName(c.Provider),
			yesNo(c.Available),
		)
	}
	w.Flush()
}

func providerName(r client.Ref[client.Provider]) string {
	if r.Populated() && r.Value.Name != "" {
		return r.Value.Name
	}
	return r.ID
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// selectCar lets the user pick a car interactively.
func selectCar(ctx context.Context, env *Env) (*client.Car, error) {
	cars, err := env.API.ListCars(ctx)
	if err != nil {
		return nil, err
	}
	if len(cars) == 0 {
		return nil, fmt.Errorf("no cars available")
	}

	labels := make([]string, len(cars))
	for i, c := range cars {
		labels[i] = fmt.Sprintf("%s (%s) %.2f/day at %s", c.Name, c.Type, c.PricePerDay, providerName(c.Provider))
	}
	index, err := env.Prompt.Select("Select a car", labels)
	if err != nil {
		return nil, err
	}
	return &cars[index], nil
}

// selectProvider lets the user pick a provider interactively.
func selectProvider(ctx context.Context, env *Env) (*client.Provider, error) {
	providers, err := env.API.ListProviders(ctx)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	labels := make([]string, len(providers))
	for i, p := range providers {
		labels[i] = fmt.Sprintf("%s (%s)", p.Name, p.Address)
	}
	index, err := env.Prompt.Select("Select a provider", labels)
	if err != nil {
		return nil, err
	}
	return &providers[index], nil
}
