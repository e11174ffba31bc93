package config

import (
	"errors"
	"flag"
	"net"
	"regexp"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	DBUrl         string
	UploadDir     string
	PublicURL     string
	TokenSecret   string
	TokenTTL      time.Duration
	AdminPassword string
	Debug         bool
}

func ParseFlags() (cfg Config, err error) {
	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 8000, "listen port number (default 8000)")
	flag.StringVar(&cfg.DBUrl, "db-url", "surveyforge.sqlite", "path to SQLite3 DB file (default surveyforge.sqlite)")
	flag.StringVar(&cfg.UploadDir, "upload-dir", "uploads", "directory for uploaded files (default uploads)")
	flag.StringVar(&cfg.PublicURL, "public-url", "", "public base URL prepended to share links")
	flag.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for token encryption and decryption")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", 3600, "access token TTL in seconds (default 3600)")
	flag.StringVar(&cfg.AdminPassword, "admin-password", "", "reset the admin user password at startup")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret")
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
