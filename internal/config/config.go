package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host      string    `koanf:"host"`
	Port      int       `koanf:"port"`
	Database  Database  `koanf:"db"`
	Functions Functions `koanf:"functions"`
	Admin     Admin     `koanf:"admin"`
	Calendar  Calendar  `koanf:"calendar"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
	// ConnectAttempts bounds how many times startup tries to reach the database.
	ConnectAttempts int           `koanf:"connectattempts"`
	ConnectDelay    time.Duration `koanf:"connectdelay"`
}

// Functions describes the recurrence expansion endpoint the calendar reads from.
type Functions struct {
	ExpandURL string        `koanf:"expandurl"`
	Timeout   time.Duration `koanf:"timeout"`
	// ServiceToken is sent as a bearer token when set.
	ServiceToken string `koanf:"servicetoken"`
}

type Admin struct {
	User string `koanf:"user"`
	// PasswordHash is an Argon2id hash produced by the hash-password command.
	PasswordHash      string        `koanf:"passwordhash"`
	LoginsPerMinute   int           `koanf:"loginsperminute"`
	LoginBurst        int           `koanf:"loginburst"`
	LimiterCacheSize  int           `koanf:"limitercachesize"`
	LimiterExpiration time.Duration `koanf:"limiterexpiration"`
	// TrustedProxies lists addresses or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string `koanf:"trustedproxies"`
}

type Calendar struct {
	DefaultView        string        `koanf:"defaultview"`
	Timezone           string        `koanf:"timezone"`
	RealtimeDebounce   time.Duration `koanf:"realtimedebounce"`
	RealtimeRetries    int           `koanf:"realtimeretries"`
	RealtimeRetryDelay time.Duration `koanf:"realtimeretrydelay"`
	// Resync is a cron spec for the periodic full reload.
	Resync         string `koanf:"resync"`
	MaxOccurrences int    `koanf:"maxoccurrences"`
	FeedName       string `koanf:"feedname"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Host: "http://localhost:8181",
		Port: 8181,
		Database: Database{
			Host:            "localhost",
			Port:            5432,
			User:            "oremband",
			Pass:            "",
			Name:            "oremband",
			Schema:          "oremband",
			ConnectAttempts: 5,
			ConnectDelay:    2 * time.Second,
		},
		Functions: Functions{
			ExpandURL: "http://localhost:8181/functions/v1/expand-rrules",
			Timeout:   10 * time.Second,
		},
		Admin: Admin{
			User:              "admin",
			LoginsPerMinute:   10,
			LoginBurst:        5,
			LimiterCacheSize:  1024,
			LimiterExpiration: 15 * time.Minute,
		},
		Calendar: Calendar{
			DefaultView:        "month",
			Timezone:           "America/Denver",
			RealtimeDebounce:   300 * time.Millisecond,
			RealtimeRetries:    5,
			RealtimeRetryDelay: 5 * time.Second,
			Resync:             "@every 15m",
			MaxOccurrences:     1000,
			FeedName:           "Orem High Band",
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "OREMBAND_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "OREMBAND_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}

// Location resolves the calendar timezone, falling back to UTC.
func (c Calendar) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Warnf("unknown calendar timezone %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}
