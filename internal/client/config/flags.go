package config

import (
	"flag"
	"os"
	"time"

	"github.com/avolkov-dev/filevault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   base URL of the vault server
//	-k string   path to the identity keystore file
//	-t int      request timeout in seconds
//
// Arguments are filtered through flagx.FilterArgs so flags owned by other
// components do not trip the parser.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "base URL of the vault server")
	fs.StringVar(&cfg.KeystorePath, "k", cfg.KeystorePath, "path to the identity keystore file")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
