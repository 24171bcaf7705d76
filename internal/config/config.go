package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host     string   `koanf:"host"`
	Database Database `koanf:"db"`
	Budget   Budget   `koanf:"budget"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

// Budget holds the defaults applied to newly provisioned users.
// Each value can be changed per user afterwards through their settings.
type Budget struct {
	Currency     string `koanf:"currency"`
	WeekStartDay int    `koanf:"weekstartday"`
	// TimeCapacity is the default weekly hour capacity for TIME periods.
	TimeCapacity string `koanf:"timecapacity"`
	// BaseIncome is the default capacity seeded into new MONEY periods
	// before rollover balances are added.
	BaseIncome string `koanf:"baseincome"`
	// AutoCopy controls whether envelopes carry their budgeted targets
	// (and, for MONEY, unspent funded balances) into newly created periods.
	AutoCopy bool `koanf:"autocopy"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Host: ":8181",
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "kuvert",
			Pass:   "",
			Name:   "kuvert",
			Schema: "kuvert",
		},
		Budget: Budget{
			Currency:     "USD",
			WeekStartDay: 0,
			TimeCapacity: "168",
			BaseIncome:   "0",
			AutoCopy:     true,
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
		Prefix: "KUVERT_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "KUVERT_")), "_", ".")
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
