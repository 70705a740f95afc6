package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophtodo/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
//	-a string     HTTP bind address (e.g. ":8080")
//	-d string     PostgreSQL DSN
//	-s string     token signing secret
//	-t lifetime   token lifetime (e.g. "168h" or "7d")
//	-prod         production mode
//	-r string     Redis URL for change events
//	-o string     CORS allowed origins, comma-separated
//	-b int        bcrypt cost
//
// os.Args is filtered first so subcommand flags of other binaries
// (cmd/admin) do not collide.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-prod", "-r", "-o", "-b"})

	fs := flag.NewFlagSet("config", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	fs.Func("t", "session token lifetime (e.g. \"168h\" or \"7d\")", func(v string) error {
		d, err := ParseLifetime(v)
		if err != nil {
			return err
		}
		config.TokenLifetime = d
		return nil
	})
	fs.BoolVar(&config.Production, "prod", config.Production, "production mode")
	fs.StringVar(&config.RedisURL, "r", config.RedisURL, "redis URL for change events")
	fs.StringVar(&config.CORSAllowedOrigins, "o", config.CORSAllowedOrigins, "CORS allowed origins")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")

	return fs.Parse(args)
}
