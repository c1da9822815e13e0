// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Rhys Calloway, Stagewire

package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/stagewire/fermata/pkg/amp"
	"github.com/stagewire/fermata/pkg/roland"
)

var (
	paramSetVerify  bool
	paramSetTimeout int
)

var paramSetCmd = &cobra.Command{
	Use:   "param_set <address> <value>",
	Short: "Write a single amplifier parameter",
	Long: `Write one parameter value to the amplifier.

The address is four hex bytes, with or without separators; the value is
a decimal number from 0 to 127:
  fermata param_set "60 00 04 10" 100
  fermata param_set 60000410 0

With --verify the parameter is read back after the write and the command
fails if the device reports a different value. The amplifier does not
echo writes, so without --verify a successful exit only means the write
was sent.

Exit codes:
  0 - Write sent (and verified, with --verify)
  1 - Verification failed or timed out
  2 - Connection or argument error`,
	Args: cobra.ExactArgs(2),
	RunE: runParamSet,
}

func init() {
	rootCmd.AddCommand(paramSetCmd)
	paramSetCmd.Flags().BoolVar(&paramSetVerify, "verify", false, "Read the parameter back and compare")
	paramSetCmd.Flags().IntVar(&paramSetTimeout, "timeout", 5, "Timeout in seconds for verification")
}

func runParamSet(cmd *cobra.Command, args []string) error {
	addr, err := roland.ParseAddress(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Argument error: %v\n", err)
		os.Exit(2)
	}
	value, err := strconv.Atoi(args[1])
	if err != nil || value < 0 || value > roland.MaxValue {
		fmt.Fprintf(os.Stderr, "Argument error: value must be 0-%d\n", roland.MaxValue)
		os.Exit(2)
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Fermata - Parameter Write\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Address: %s  Value: %d\n\n", addr, value)

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

	if err := sess.SetParameter(addr, byte(value)); err != nil {
		fmt.Fprintf(os.Stderr, "Write error: %v\n", err)
		os.Exit(2)
	}

	if !paramSetVerify {
		fmt.Printf("Write sent: %s = %d\n", addr, value)
		os.Exit(0)
	}

	if err := sess.ReadParameter(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Verify read error: %v\n", err)
		os.Exit(2)
	}

	deadline := time.After(time.Duration(paramSetTimeout) * time.Second)
	for {
		select {
		case u := <-updateChan:
			if u.Address != addr {
				continue
			}
			if int(u.Value) == value {
				fmt.Printf("SUCCESS: %s = %d (verified)\n", u.Address, u.Value)
				os.Exit(0)
			}
			fmt.Fprintf(os.Stderr, "MISMATCH: wrote %d, device reports %d\n", value, u.Value)
			os.Exit(1)

		case err := <-errChan:
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
			os.Exit(2)

		case <-deadline:
			fmt.Fprintf(os.Stderr, "TIMEOUT: No verification response within %d seconds\n", paramSetTimeout)
			os.Exit(1)
		}
	}
}
