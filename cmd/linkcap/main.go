// Command linkcap computes the maximum error-free bitrate of a
// free-space radio link with the Shannon-Hartley theorem.
//
//	linkcap tx_w tx_gain_db freq_hz dist_km rx_gain_db n0_j bw_hz
//	linkcap serve [--grpc-addr :50051] [--metrics-addr :9090]
package main

import (
	"context"
	"os"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
