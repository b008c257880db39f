/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/beevik/ntp"
	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	queryServer  string
	queryPort    int
	queryTimeout time.Duration
)

func init() {
	RootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryServer, "server", "S", "localhost", "server to query")
	queryCmd.Flags().IntVarP(&queryPort, "port", "p", 123, "NTP port of the server")
	queryCmd.Flags().DurationVarP(&queryTimeout, "timeout", "t", 5*time.Second, "query timeout")
}

func printResponse(w io.Writer, resp *ntp.Response) {
	fmt.Fprintf(w, "time:            %v\n", resp.Time.UTC())
	fmt.Fprintf(w, "offset:          %v\n", resp.ClockOffset)
	fmt.Fprintf(w, "rtt:             %v\n", resp.RTT)
	fmt.Fprintf(w, "stratum:         %d\n", resp.Stratum)
	fmt.Fprintf(w, "reference id:    %s\n", refIDString(resp.ReferenceID))
	fmt.Fprintf(w, "reference time:  %v\n", resp.ReferenceTime.UTC())
	fmt.Fprintf(w, "precision:       %v\n", resp.Precision)
	fmt.Fprintf(w, "root delay:      %v\n", resp.RootDelay)
	fmt.Fprintf(w, "root dispersion: %v\n", resp.RootDispersion)
	fmt.Fprintf(w, "leap:            %d\n", resp.Leap)
}

// refIDString renders a stratum 1 reference id as ASCII
func refIDString(id uint32) string {
	b := []byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)}
	for i, c := range b {
		if c == 0 {
			b = b[:i]
			break
		}
	}
	return string(b)
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query an NTP server and validate the reply",
	Run: func(cmd *cobra.Command, args []string) {
		ConfigureVerbosity()

		resp, err := ntp.QueryWithOptions(net.JoinHostPort(queryServer, strconv.Itoa(queryPort)), ntp.QueryOptions{Timeout: queryTimeout})
		if err != nil {
			log.Fatal(err)
		}
		if verbose {
			spew.Dump(resp)
		}
		printResponse(os.Stdout, resp)
		if err := resp.Validate(); err != nil {
			log.Fatalf("reply is not usable: %v", err)
		}
	},
}
