package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nicheinc/kintoneclient"
	"github.com/peterbourgon/ff/v3"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

func main() {

	var (
		subdomain   string
		appsFile    string
		user        string
		pass        string
		encodedAuth string
		basicUser   string
		basicPass   string
		strict      bool
		timeout     time.Duration

		op      string
		app     string
		query   string
		records string
		ids     string
		file    string
	)

	fs := flag.NewFlagSet("kintone", flag.ExitOnError)
	fs.StringVar(&subdomain, "subdomain", "", "kintone subdomain or full host name ending in .com")
	fs.StringVar(&appsFile, "apps", "apps.json", "Path to the JSON app registry")
	fs.StringVar(&user, "user", "", "Login name for session authentication")
	fs.StringVar(&pass, "pass", "", "Password for session authentication")
	fs.StringVar(&encodedAuth, "auth", "", "Pre-encoded session credential, used when -user is empty")
	fs.StringVar(&basicUser, "basic.user", "", "HTTP Basic authentication user")
	fs.StringVar(&basicPass, "basic.pass", "", "HTTP Basic authentication password")
	fs.BoolVar(&strict, "strict", false, "Report non 2xx responses as errors")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP request timeout")

	fs.StringVar(&op, "op", "search", "Operation: create, search, update, destroy or upload")
	fs.StringVar(&app, "app", "", "Logical app name from the registry")
	fs.StringVar(&query, "query", "", "Query for search")
	fs.StringVar(&records, "records", "", "Path to a JSON array of records for create and update")
	fs.StringVar(&ids, "ids", "", "Comma separated record ids for destroy")
	fs.StringVar(&file, "file", "", "Path of the file to upload")

	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("KINTONE")); err != nil {
		log.Fatalf("Error parsing flags: %s", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Error building logger: %s", err)
	}
	defer logger.Sync()

	osFs := afero.NewOsFs()
	apps, err := kintoneclient.LoadAppRegistry(osFs, appsFile)
	if err != nil {
		logger.Fatal("Error loading app registry", zap.Error(err))
	}

	var session kintoneclient.Credential
	switch {
	case user != "":
		session = kintoneclient.UserPassCredential(user, pass)
	case encodedAuth != "":
		session = kintoneclient.EncodedCredential(encodedAuth)
	}
	var basicAuth kintoneclient.Credential
	if basicUser != "" {
		basicAuth = kintoneclient.UserPassCredential(basicUser, basicPass)
	}

	client, err := kintoneclient.NewClient(kintoneclient.Config{
		Subdomain: subdomain,
		Apps:      apps,
		Session:   session,
		BasicAuth: basicAuth,
		Fetcher: kintoneclient.NewHTTPFetcher(http.Client{ // underlying HTTP client making all HTTP calls
			Timeout: timeout,
		}, logger),
		Files:            kintoneclient.NewFSFileSource(osFs),
		StrictHTTPStatus: strict,
		Logger:           logger,
	})
	if err != nil {
		logger.Fatal("Error initializing kintone client", zap.Error(err))
	}

	ctx := context.Background()
	var res *kintoneclient.Response
	switch op {
	case "create", "update":
		var recs []kintoneclient.Record
		raw, readErr := afero.ReadFile(osFs, records)
		if readErr != nil {
			logger.Fatal("Error reading records", zap.Error(readErr))
		}
		if jsonErr := json.Unmarshal(raw, &recs); jsonErr != nil {
			logger.Fatal("Error decoding records", zap.Error(jsonErr))
		}
		if op == "create" {
			res, err = client.Create(ctx, app, recs)
		} else {
			res, err = client.Update(ctx, app, recs)
		}
	case "search":
		res, err = client.Search(ctx, app, query)
	case "destroy":
		recordIDs, parseErr := parseIDs(ids)
		if parseErr != nil {
			logger.Fatal("Error parsing record ids", zap.Error(parseErr))
		}
		res, err = client.Destroy(ctx, app, recordIDs)
	case "upload":
		res, err = client.Upload(ctx, app, file)
	default:
		logger.Fatal("Unknown operation", zap.String("op", op))
	}
	if err != nil {
		logger.Error("kintone request failed", zap.String("op", op), zap.Error(err))
	}
	if res != nil {
		fmt.Printf("%d\n%s\n", res.StatusCode, res.Body)
	}
	if err != nil {
		logger.Sync()
		os.Exit(1)
	}
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
