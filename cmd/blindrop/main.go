// Command blindrop is the command-line client: it encrypts and uploads
// content, and fetches and decrypts share URLs. Key material never leaves
// the machine except inside the share URL's fragment.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/blindrop/blindrop/core/client"
	"github.com/blindrop/blindrop/core/infra/buildinfo"
)

const defaultGateway = "http://localhost:8080"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "drop":
		runDrop(os.Args[2:])
	case "fetch":
		runFetch(os.Args[2:])
	case "version":
		fmt.Println(buildinfo.Info())
	default:
		usage()
		os.Exit(1)
	}
}

func runDrop(args []string) {
	fs := flag.NewFlagSet("drop", flag.ExitOnError)
	gateway := fs.String("gateway", envOr("BLINDROP_GATEWAY", defaultGateway), "gateway base URL")
	ttl := fs.Int("ttl", 0, "lifetime in hours (0 = server default)")
	price := fs.Float64("price", 0, "price in USD; 0 leaves the drop free")
	file := fs.String("file", "", "file to drop (default: stdin)")
	_ = fs.Parse(args)

	plaintext, err := readInput(*file)
	check(err)

	var priceUSD *float64
	if *price > 0 {
		priceUSD = price
	}
	result, err := client.New(*gateway).Drop(context.Background(), plaintext, *ttl, priceUSD)
	check(err)
	fmt.Fprintf(os.Stderr, "expires %s\n", result.ExpiresAt.Format("2006-01-02 15:04 MST"))
	fmt.Println(result.ShareURL)
}

func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	proof := fs.String("payment-proof", "", "payment proof token for paid drops")
	out := fs.String("out", "", "output file (default: stdout)")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		fail("share URL required")
	}

	result, err := client.New("").Fetch(context.Background(), fs.Arg(0), *proof)
	check(err)
	fmt.Fprintf(os.Stderr, "content: %s\n", result.Kind.Label)

	if *out == "" {
		_, err = os.Stdout.Write(result.Plaintext)
		check(err)
		return
	}
	check(os.WriteFile(*out, result.Plaintext, 0o600))
}

func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func check(err error) {
	if err != nil {
		fail(err.Error())
	}
}

func fail(msg string) {
	fmt.Fprintln(os.Stderr, "error: "+msg)
	os.Exit(1)
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  blindrop drop [-gateway URL] [-ttl HOURS] [-price USD] [-file PATH]
  blindrop fetch [-payment-proof TOKEN] [-out PATH] <share-url>
  blindrop version`)
}
