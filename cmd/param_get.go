// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Rhys Calloway, Stagewire

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stagewire/fermata/pkg/amp"
	"github.com/stagewire/fermata/pkg/roland"
)

var (
	paramGetTimeout int
)

var paramGetCmd = &cobra.Command{
	Use:   "param_get <address>",
	Short: "Read a single amplifier parameter",
	Long: `Read one parameter from the amplifier and print its value.

The address is four hex bytes, with or without separators:
  fermata param_get "60 00 04 10"
  fermata param_get 60:00:04:10
  fermata param_get 60000410

Exit codes:
  0 - Value received before timeout
  1 - Timeout reached without a response
  2 - Connection or argument error

Useful for scripting presets or checking a knob position remotely.`,
	Args: cobra.ExactArgs(1),
	RunE: runParamGet,
}

func init() {
	rootCmd.AddCommand(paramGetCmd)
	paramGetCmd.Flags().IntVar(&paramGetTimeout, "timeout", 5, "Timeout in seconds to wait for the response")
}

func runParamGet(cmd *cobra.Command, args []string) error {
	addr, err := roland.ParseAddress(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Argument error: %v\n", err)
		os.Exit(2)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Fermata - Parameter Read\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Address: %s\n\n", addr)

	updateChan := make(chan amp.Update, 8)
	errChan := make(chan error, 1)

	sess := amp.New(sessionTransport{conn: conn}, amp.Handlers{
		Update: func(u amp.Update) {
			select {
			case updateChan <- u:
			default:
			}
		},
	})
	if err := sess.Open(); err != nil {
		fmt.Fprintf(os.Stderr, "Session error: %v\n", err)
		os.Exit(2)
	}
	defer sess.Close()

	// Reader goroutine
	go func() {
		buf := make([]byte, 512)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			if n == 0 {
				continue
			}
			sess.HandleFragment(buf[:n])
		}
	}()

	if err := sess.ReadParameter(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		os.Exit(2)
	}

	// Wait for the matching update or timeout
	deadline := time.After(time.Duration(paramGetTimeout) * time.Second)
	for {
		select {
		case u := <-updateChan:
			if u.Address != addr {
				// Some other parameter changed while we were waiting
				continue
			}
			fmt.Printf("SUCCESS: %s = %d\n", u.Address, u.Value)
			os.Exit(0)

		case err := <-errChan:
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)

		case <-deadline:
			fmt.Fprintf(os.Stderr, "TIMEOUT: No response within %d seconds\n", paramGetTimeout)
			os.Exit(1)
		}
	}
}
