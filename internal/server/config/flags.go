package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/certhub/internal/flagx"
)

// parseFlags overlays the short command-line flags:
//
//	-a  HTTP bind address
//	-d  database DSN (postgres:// selects PostgreSQL, anything else SQLite)
//	-s  token signing secret
//	-t  session token validity, minutes
//	-i  institutional email domain
//	-f  data directory
//	-k  blob backend (fs|s3)
//	-u -p -b -g -e  S3 user, password, bucket, region, endpoint
//	-r  Redis address for one-time codes
//	-l  auth requests per minute per client
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-s", "-t", "-i", "-f", "-k", "-u", "-p", "-b", "-g", "-e", "-r", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "token signing secret")
	validity := fs.Int("t", int(config.TokenValidity.Minutes()), "session token validity (in minutes)")
	fs.StringVar(&config.InstitutionDomain, "i", config.InstitutionDomain, "institutional email domain")
	fs.StringVar(&config.DataDir, "f", config.DataDir, "data directory")
	fs.StringVar(&config.BlobBackend, "k", config.BlobBackend, "blob backend: fs or s3")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address for one-time codes")
	fs.IntVar(&config.AuthRatePerMinute, "l", config.AuthRatePerMinute, "auth requests per minute per client")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidity = time.Duration(*validity) * time.Minute
}
