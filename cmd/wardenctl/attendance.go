package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	attendanceCmd := &cobra.Command{Use: "attendance", Short: "Attendance quota operations"}

	grant := func(use, short, endpoint string) *cobra.Command {
		var nameFlag string
		var qtyFlag int
		cmd := &cobra.Command{
			Use:   fmt.Sprintf("%s ENTITY_ID", use),
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := postJSON(fmt.Sprintf("/api/attendance/%s/%s", args[0], endpoint),
					map[string]interface{}{"displayName": nameFlag, "quantity": qtyFlag})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(os.Stdout, out)
				return nil
			},
		}
		cmd.Flags().StringVarP(&nameFlag, "name", "n", "", "Display name (required)")
		cmd.Flags().IntVarP(&qtyFlag, "quantity", "q", 1, "Attendance units to grant")
		_ = cmd.MarkFlagRequired("name")
		return cmd
	}

	attendanceCmd.AddCommand(grant("daily", "Grant capped daily attendance", "daily"))
	attendanceCmd.AddCommand(grant("daily-manual", "Set today's attendance directly", "daily-manual"))
	attendanceCmd.AddCommand(grant("manual", "Grant weekly bonus attendance", "manual"))

	var fromFlag, toFlag, toNameFlag string
	var transferQtyFlag int
	transferCmd := &cobra.Command{
		Use:   "transfer",
		Short: "Transfer today's attendance between entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := postJSON("/api/attendance/transfer", map[string]interface{}{
				"fromId":   fromFlag,
				"toId":     toFlag,
				"toName":   toNameFlag,
				"quantity": transferQtyFlag,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	}
	transferCmd.Flags().StringVarP(&fromFlag, "from", "f", "", "Donor entity ID (required)")
	transferCmd.Flags().StringVarP(&toFlag, "to", "t", "", "Receiver entity ID (required)")
	transferCmd.Flags().StringVar(&toNameFlag, "to-name", "", "Receiver display name")
	transferCmd.Flags().IntVarP(&transferQtyFlag, "quantity", "q", 1, "Units to transfer")
	_ = transferCmd.MarkFlagRequired("from")
	_ = transferCmd.MarkFlagRequired("to")
	attendanceCmd.AddCommand(transferCmd)

	attendanceCmd.AddCommand(&cobra.Command{
		Use:   "info ENTITY_ID",
		Short: "Show an entity's daily, weekly and total counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := getJSON(fmt.Sprintf("/api/attendance/%s", args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	})

	attendanceCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all attendance records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := getJSON("/api/attendance")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	})

	attendanceCmd.AddCommand(&cobra.Command{
		Use:   "reset-weekly",
		Short: "Clear every manual weekly bonus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := postJSON("/api/attendance/reset-weekly", nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "ok")
			return nil
		},
	})

	attendanceCmd.AddCommand(&cobra.Command{
		Use:   "reset-daily",
		Short: "Clear every transfer day-lock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := postJSON("/api/attendance/reset-daily", nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "ok")
			return nil
		},
	})

	attendanceCmd.AddCommand(&cobra.Command{
		Use:   "wipe",
		Short: "Delete every attendance record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := deleteJSON("/api/attendance")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, out)
			return nil
		},
	})

	rootCmd.AddCommand(attendanceCmd)
}
