package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/BearBump/BagTrace/internal/flightid"
	"github.com/BearBump/BagTrace/internal/models"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	var airline string
	cmd := &cobra.Command{
		Use:   "parse <flight>",
		Short: "Split a flight designator into carrier code and number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := flightid.Parse(args[0], airline)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, map[string]string{
					"carrierCode":  id.CarrierCode,
					"flightNumber": id.FlightNumber,
					"flight":       id.String(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Carrier", "Number", "Flight"},
				[][]string{{id.CarrierCode, id.FlightNumber, id.String()}},
				nil,
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&airline, "airline", "", "Carrier code hint")
	return cmd
}

func newRouteCommand(ctx *commandContext) *cobra.Command {
	var airline, date string
	cmd := &cobra.Command{
		Use:   "route <flight>",
		Short: "Resolve a flight route through the provider chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := flightid.Parse(args[0], airline)
			if err != nil {
				return err
			}
			day, err := flightid.ParseDate(date)
			if err != nil {
				return err
			}
			r, err := ctx.resolver()
			if err != nil {
				return err
			}
			res, err := r.Resolve(cmd.Context(), id, day)
			if err != nil {
				return err
			}

			if ctx.jsonFlag {
				return writeJSON(cmd, map[string]any{
					"flight":   id.String(),
					"date":     day,
					"route":    res.Route,
					"attempts": res.Attempts,
				})
			}

			out := cmd.OutOrStdout()
			if res.Route == nil {
				fmt.Fprintf(out, "flight %s on %s not found\n", id, day)
			} else {
				rt := res.Route
				fmt.Fprintln(out, renderTable(
					[]string{"Flight", "Date", "From", "To", "Airline", "Aircraft", "Source", "Provider"},
					[][]string{{id.String(), day, rt.OriginCode, rt.DestCode, deref(rt.Airline), deref(rt.Aircraft), rt.Source, rt.Provider}},
					nil,
				))
			}
			fmt.Fprintln(out, renderAttempts(res.Attempts))
			if res.Route == nil {
				return fmt.Errorf("flight %s not found", id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&airline, "airline", "", "Carrier code hint")
	cmd.Flags().StringVar(&date, "date", "", "Travel date, YYYY-MM-DD")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var claim models.TravelClaim
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Score a travel claim against flight data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := ctx.verifier()
			if err != nil {
				return err
			}
			res, err := v.Verify(cmd.Context(), claim)
			if err != nil {
				return err
			}
			if ctx.jsonFlag {
				return writeJSON(cmd, res)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(res.Evidence)+1)
			for _, e := range res.Evidence {
				rows = append(rows, []string{e.Tag, strconv.Itoa(e.Points)})
			}
			rows = append(rows, []string{"total", strconv.Itoa(res.Score)})
			fmt.Fprintln(out, renderTable([]string{"Evidence", "Points"}, rows, []columnAlignment{alignLeft, alignRight}))
			fmt.Fprintf(out, "status: %s\n", res.Status)
			for _, issue := range res.Issues {
				fmt.Fprintf(out, "issue: %s\n", issue)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&claim.FlightNumber, "flight", "", "Flight number, e.g. AA100")
	f.StringVar(&claim.CarrierCode, "airline", "", "Carrier code hint")
	f.StringVar(&claim.TravelDate, "date", "", "Travel date, YYYY-MM-DD")
	f.StringVar(&claim.OriginCode, "from", "", "Claimed origin airport (IATA)")
	f.StringVar(&claim.DestCode, "to", "", "Claimed destination airport (IATA)")
	f.StringVar(&claim.LastName, "last-name", "", "Passenger last name")
	f.StringVar(&claim.TravelDocNumber, "doc", "", "Travel document number")
	f.StringVar(&claim.BaggageTag, "tag", "", "Baggage tag")
	f.StringVar(&claim.BookingRef, "booking", "", "Booking reference")
	f.StringVar(&claim.TicketNumber, "ticket", "", "Ticket number")
	_ = cmd.MarkFlagRequired("flight")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func renderAttempts(as []models.ProviderAttempt) string {
	rows := make([][]string, 0, len(as))
	for _, a := range as {
		rows = append(rows, []string{a.Provider, a.Outcome, strconv.FormatInt(a.ElapsedMs, 10), a.Error})
	}
	return renderTable([]string{"Provider", "Outcome", "Ms", "Error"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft})
}
