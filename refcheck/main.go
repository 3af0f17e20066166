package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ghetzel/cli"
	"github.com/ghetzel/go-stockutil/log"
	"github.com/ghetzel/refcheck"
	"github.com/ghetzel/refcheck/dal"
	"github.com/ghetzel/refcheck/util"
)

func main() {
	app := cli.NewApp()
	app.Name = util.ApplicationName
	app.Usage = util.ApplicationSummary
	app.Version = util.ApplicationVersion
	app.EnableBashCompletion = false

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   `log-level, L`,
			Usage:  `Level of log output verbosity`,
			Value:  `info`,
			EnvVar: `LOGLEVEL`,
		},
		cli.StringFlag{
			Name:  `config, c`,
			Usage: `Path to the configuration file to load.`,
			Value: `refcheck.yml`,
		},
		cli.StringSliceFlag{
			Name:  `schema, s`,
			Usage: `Path to one or more schema files (or directories of them) to load`,
		},
	}

	app.Before = func(c *cli.Context) error {
		log.SetLevelString(c.String(`log-level`))
		return nil
	}

	app.Commands = []cli.Command{
		{
			Name:      `web`,
			Usage:     `Start the validation API server.`,
			ArgsUsage: `[CONNECTION_STRING]`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  `address, a`,
					Usage: `The local address the server should listen on.`,
				},
			},
			Action: func(c *cli.Context) {
				config := loadConfig(c)

				if v := c.Args().First(); v != `` {
					config.Backend = v
				}

				server := refcheck.NewServer(config.Backend)

				if v := c.String(`address`); v != `` {
					server.Address = v
				} else if config.Address != `` {
					server.Address = config.Address
				}

				for _, filename := range schemata(c, config) {
					server.AddSchemaDefinition(filename)
				}

				if err := server.ListenAndServe(); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			},
		},
		{
			Name:      `normalize`,
			Usage:     `Print the canonical existence configuration of every reference path in a schema.`,
			ArgsUsage: `SCHEMA_FILE`,
			Action: func(c *cli.Context) {
				if filename := c.Args().First(); filename != `` {
					if collections, err := refcheck.LoadSchemata(filename); err == nil {
						out := make(map[string][]refcheck.PathDescription)

						for _, collection := range collections {
							out[collection.Name] = refcheck.DescribePaths(collection)
						}

						printJSON(out)
					} else {
						log.Fatalf("Failed to load schema: %v", err)
					}
				} else {
					log.Fatalf("Must specify a schema file")
				}
			},
		},
		{
			Name:      `check`,
			Usage:     `Validate a record against a collection, checking its references in the configured backend.`,
			ArgsUsage: `SCHEMA_FILE COLLECTION RECORD_JSON`,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  `backend, b`,
					Usage: `The connection string of the backend holding the referenced records.`,
				},
			},
			Action: func(c *cli.Context) {
				config := loadConfig(c)

				if v := c.String(`backend`); v != `` {
					config.Backend = v
				}

				if len(c.Args()) < 3 {
					log.Fatalf("Usage: %s check SCHEMA_FILE COLLECTION RECORD_JSON", util.ApplicationName)
				}

				var data map[string]interface{}

				if err := json.Unmarshal([]byte(c.Args().Get(2)), &data); err != nil {
					log.Fatalf("Invalid record: %v", err)
				}

				db, err := refcheck.NewDatabase(config.Backend)

				if err != nil {
					log.Fatalf("Failed to connect to %q: %v", config.Backend, err)
				}

				for _, filename := range append(c.GlobalStringSlice(`schema`), c.Args().Get(0)) {
					if err := db.ApplySchemata(filename); err != nil {
						log.Fatalf("Failed to load schema: %v", err)
					}
				}

				if model, ok := db.Model(c.Args().Get(1)); ok {
					if record, err := model.Validate(context.Background(), data); err == nil {
						printJSON(record.Map(model.GetCollection().GetIdentityFieldName()))
					} else if verr, ok := err.(*dal.ValidationError); ok {
						printJSON(verr)
						os.Exit(1)
					} else {
						log.Fatalf("Validation could not complete: %v", err)
					}
				} else {
					log.Fatalf("Collection %q is not defined", c.Args().Get(1))
				}
			},
		},
	}

	app.Run(os.Args)
}

func loadConfig(c *cli.Context) refcheck.Configuration {
	var config refcheck.Configuration

	if loaded, err := refcheck.LoadConfigFile(c.GlobalString(`config`)); err == nil {
		config = loaded.ForEnv(os.Getenv(`REFCHECK_ENV`))
	} else if !os.IsNotExist(err) {
		log.Fatalf("Configuration error: %v", err)
	}

	if config.Backend == `` {
		config.Backend = `memory://`
	}

	return config
}

func schemata(c *cli.Context, config refcheck.Configuration) []string {
	if paths := c.GlobalStringSlice(`schema`); len(paths) > 0 {
		return paths
	}

	return config.Schemata
}

func printJSON(value interface{}) {
	if data, err := json.MarshalIndent(value, ``, `  `); err == nil {
		fmt.Println(string(data))
	} else {
		log.Fatalf("Cannot encode output: %v", err)
	}
}
