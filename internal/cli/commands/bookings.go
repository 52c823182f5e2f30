package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/carrent-dev/carrent/internal/client"
)

const dateLayout = "2006-01-02"

// bookingForm collects the fields shared by book and bookings edit.
type bookingForm struct {
	pickupLocation string
	returnLocation string
	pickupDate     string
	returnDate     string
}

func (f *bookingForm) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.pickupLocation, "pickup-location", "", "Where the car is picked up")
	cmd.Flags().StringVar(&f.returnLocation, "return-location", "", "Where the car is returned")
	cmd.Flags().StringVar(&f.pickupDate, "pickup", "", "Pickup date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.returnDate, "return", "", "Return date (YYYY-MM-DD)")
}

// complete prompts for missing fields and parses the dates.
func (f *bookingForm) complete(p Prompter) (pickup, ret time.Time, err error) {
	if f.pickupLocation, err = ask(p, f.pickupLocation, "Pickup location"); err != nil {
		return
	}
	if f.returnLocation, err = ask(p, f.returnLocation, "Return location"); err != nil {
		return
	}
	if f.pickupDate, err = ask(p, f.pickupDate, "Pickup date (YYYY-MM-DD)"); err != nil {
		return
	}
	if f.returnDate, err = ask(p, f.returnDate, "Return date (YYYY-MM-DD)"); err != nil {
		return
	}

	if pickup, err = time.Parse(dateLayout, f.pickupDate); err != nil {
		return pickup, ret, fmt.Errorf("invalid pickup date %q, expected YYYY-MM-DD", f.pickupDate)
	}
	if ret, err = time.Parse(dateLayout, f.returnDate); err != nil {
		return pickup, ret, fmt.Errorf("invalid return date %q, expected YYYY-MM-DD", f.returnDate)
	}
	return pickup, ret, nil
}

// NewBookCmd creates the book command
func NewBookCmd(env *Env) *cobra.Command {
	var form bookingForm

	cmd := &cobra.Command{
		Use:   "book [car-id]",
		Short: "Book a car",
		Long:  "Book a car. Without a car ID, pick one from the list.",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return env.Navigate("/book/" + args[0])
			}
			return env.Navigate("/book-car")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBook(cmd.Context(), env, args, form)
		},
	}

	form.bind(cmd)
	return cmd
}

func runBook(ctx context.Context, env *Env, args []string, form bookingForm) error {
	var (
		car *client.Car
		err error
	)
	if len(args) == 1 {
		car, err = env.API.GetCar(ctx, args[0])
	} else {
		car, err = selectCar(ctx, env)
	}
	if err != nil {
		return err
	}

	pickup, ret, err := form.complete(env.Prompt)
	if err != nil {
		return err
	}

	booking, err := env.API.CreateBooking(ctx, client.BookingRequest{
		Car:            car.ID,
		Provider:       car.Provider.ID,
		PickupLocation: form.pickupLocation,
		ReturnLocation: form.returnLocation,
		PickupDate:     pickup,
		ReturnDate:     ret,
	})
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	fmt.Fprintf(env.stdout(), "✓ Booked %s from %s to %s\n", car.Name, pickup.Format(dateLayout), ret.Format(dateLayout))
	fmt.Fprintf(env.stdout(), "  Booking ID: %s\n", booking.ID)
	return nil
}

// NewBookingsCmd creates the bookings command and its subcommands
func NewBookingsCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Manage your bookings",
	}

	cmd.AddCommand(newBookingsListCmd(env))
	cmd.AddCommand(newBookingsEditCmd(env))
	cmd.AddCommand(newBookingsCancelCmd(env))
	return cmd
}

func newBookingsListCmd(env *Env) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List bookings",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return env.Navigate("/all-bookings")
			}
			return env.Navigate("/my-bookings")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			bookings, err := env.API.ListBookings(cmd.Context())
			if err != nil {
				return err
			}
			if len(bookings) == 0 {
				fmt.Fprintln(env.stdout(), "No bookings found.")
				fmt.Fprintln(env.stdout(), "\nBook a car with: carrent book")
				return nil
			}
			printBookings(env.stdout(), bookings, all)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Show every user's bookings (admin only)")
	return cmd
}

func newBookingsEditCmd(env *Env) *cobra.Command {
	var form bookingForm

	cmd := &cobra.Command{
		Use:   "edit <booking-id>",
		Short: "Change the dates or locations of a booking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pickup, ret, err := form.complete(env.Prompt)
			if err != nil {
				return err
			}
			b, err := env.API.UpdateBooking(cmd.Context(), args[0], client.BookingUpdate{
				PickupLocation: form.pickupLocation,
				ReturnLocation: form.returnLocation,
				PickupDate:     pickup,
				ReturnDate:     ret,
			})
			if err != nil {
				return fmt.Errorf("failed to update booking: %w", err)
			}
			fmt.Fprintf(env.stdout(), "✓ Booking %s updated\n", b.ID)
			return nil
		},
	}

	form.bind(cmd)
	return withRoute(cmd, "/my-bookings")
}

func newBookingsCancelCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cancel <booking-id>",
		Aliases: []string{"rm"},
		Short:   "Cancel a booking",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := env.API.CancelBooking(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to cancel booking: %w", err)
			}
			fmt.Fprintf(env.stdout(), "✓ Booking %s cancelled\n", args[0])
			return nil
		},
	}
	return withRoute(cmd, "/my-bookings")
}

func printBookings(out io.Writer, bookings []client.Booking, withUser bool) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if withUser {
		fmt.Fprintln(w, "ID\tCAR\tPROVIDER\tUSER\tPICKUP\tRETURN\tSTATUS")
		fmt.Fprintln(w, "──\t───\t────────\t────\t──────\t──────\t──────")
	} else {
		fmt.Fprintln(w, "ID\tCAR\tPROVIDER\tPICKUP\tRETURN\tSTATUS")
		fmt.Fprintln(w, "──\t───\t────────\t──────\t──────\t──────")
	}

	for _, b := range bookings {
		car := b.Car.ID
		if b.Car.Populated() {
			car = b.Car.Value.Name
		}
		pickup := fmt.Sprintf("%s %s", b.PickupDate.Format(dateLayout), b.PickupLocation)
		ret := fmt.Sprintf("%s %s", b.ReturnDate.Format(dateLayout), b.ReturnLocation)

		if withUser {
			user := b.User.ID
			if b.User.Populated() {
				user = b.User.Value.Email
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", b.ID, car, providerName(b.Provider), user, pickup, ret, b.StatusOrDefault())
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", b.ID, car, providerName(b.Provider), pickup, ret, b.StatusOrDefault())
	}
	w.Flush()
}
