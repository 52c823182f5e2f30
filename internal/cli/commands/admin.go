package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/client"
)

const manageRoute = "/manage-cars"

// NewDashboardCmd creates the dashboard command
func NewDashboardCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show booking and income totals (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := env.API.Dashboard(cmd.Context())
			if err != nil {
				return err
			}

			out := env.stdout()
			fmt.Fprintf(out, "Bookings:   %d\n", d.TotalBooking)
			fmt.Fprintf(out, "Income:     %.2f\n", d.TotalIncome)
			fmt.Fprintf(out, "Outcome:    %.2f\n", d.TotalOutcome)
			fmt.Fprintf(out, "Net income: %.2f\n", d.NetIncome())

			if len(d.PopularProvider) > 0 {
				fmt.Fprintln(out, "\nPopular providers:")
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "PROVIDER\tBOOKINGS")
				for _, p := range d.PopularProvider {
					name := p.ProviderInfo.Name
					if name == "" {
						name = p.ID
					}
					fmt.Fprintf(w, "%s\t%d\n", name, p.TotalBooking)
				}
				w.Flush()
			}

			if len(d.PopularCarType) > 0 {
				fmt.Fprintln(out, "\nPopular car types:")
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TYPE\tBOOKINGS")
				for _, t := range d.PopularCarType {
					fmt.Fprintf(w, "%s\t%d\n", t.Type, t.Count)
				}
				w.Flush()
			}
			return nil
		},
	}
	return withRoute(cmd, "/dashboard")
}

// NewManageCmd creates the manage command for the admin catalog.
func NewManageCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manage",
		Short: "Add or remove cars and providers (admin only)",
	}

	cars := &cobra.Command{Use: "cars", Short: "Manage cars"}
	cars.AddCommand(newManageCarAddCmd(env))
	cars.AddCommand(withRoute(&cobra.Command{
		Use:   "delete <car-id>",
		Short: "Remove a car",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.API.DeleteCar(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete car: %w", err)
			}
			fmt.Fprintf(env.stdout(), "✓ Car %s deleted\n", args[0])
			return nil
		},
	}, manageRoute))

	providers := &cobra.Command{Use: "providers", Short: "Manage providers"}
	providers.AddCommand(newManageProviderAddCmd(env))
	providers.AddCommand(withRoute(&cobra.Command{
		Use:   "delete <provider-id>",
		Short: "Remove a provider with its cars and bookings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.API.DeleteProvider(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete provider: %w", err)
			}
			fmt.Fprintf(env.stdout(), "✓ Provider %s deleted\n", args[0])
			return nil
		},
	}, manageRoute))

	cmd.AddCommand(cars, providers)
	return cmd
}

func newManageCarAddCmd(env *Env) *cobra.Command {
	var req client.CarRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a car",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Provider == "" {
				p, err := selectProvider(cmd.Context(), env)
				if err != nil {
					return err
				}
				req.Provider = p.ID
			}
			var err error
			if req.Name, err = ask(env.Prompt, req.Name, "Name"); err != nil {
				return err
			}
			if req.Type, err = ask(env.Prompt, req.Type, "Type"); err != nil {
				return err
			}
			if req.PlateNumber, err = ask(env.Prompt, req.PlateNumber, "Plate number"); err != nil {
				return err
			}

			car, err := env.API.CreateCar(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to add car: %w", err)
			}
			fmt.Fprintf(env.stdout(), "✓ Car %s added (%s)\n", car.Name, car.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Car model name")
	cmd.Flags().StringVar(&req.Provider, "provider", "", "Provider ID (will prompt if not provided)")
	cmd.Flags().StringVar(&req.Type, "type", "", "Car type, e.g. Sedan")
	cmd.Flags().StringVar(&req.PlateNumber, "plate", "", "Plate number")
	cmd.Flags().Float64Var(&req.PricePerDay, "price", 0, "Price per day")
	cmd.Flags().BoolVar(&req.Available, "available", true, "Whether the car can be booked")

	return withRoute(cmd, manageRoute)
}

func newManageProviderAddCmd(env *Env) *cobra.Command {
	var req client.ProviderRequest
	var address string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.Name, err = ask(env.Prompt, req.Name, "Name"); err != nil {
				return err
			}
			if address, err = ask(env.Prompt, address, "Address"); err != nil {
				return err
			}
			req.Address = client.Address{Text: address}

			p, err := env.API.CreateProvider(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("failed to add provider: %w", err)
			}
			fmt.Fprintf(env.stdout(), "✓ Provider %s added (%s)\n", p.Name, p.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Provider name")
	cmd.Flags().StringVar(&address, "address", "", "Street address")
	cmd.Flags().StringVar(&req.Telephone, "telephone", "", "Telephone number")
	cmd.Flags().Float64Var(&req.Latitude, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&req.Longitude, "lng", 0, "Longitude")

	return withRoute(cmd, manageRoute)
}
