package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andresuchdata/r2bridge/internal/r2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func bucketFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "bucket", Aliases: []string{"b"}, Usage: "Bucket name", Required: true, EnvVars: []string{"R2_BUCKET"}}
}

func keyFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Object key", Required: true}
}

func corsFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "cors-file", Usage: "JSON file holding {\"rules\": [...]}"},
		&cli.StringSliceFlag{Name: "origin", Usage: "Allowed origin (repeatable)"},
		&cli.StringSliceFlag{Name: "method", Usage: "Allowed method: GET, POST, PUT, DELETE or HEAD (repeatable)"},
		&cli.StringSliceFlag{Name: "header", Usage: "Allowed request header (repeatable)"},
		&cli.IntFlag{Name: "max-age", Usage: "Preflight cache time in seconds"},
	}
}

func uploadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the object body from this file"},
		&cli.StringFlag{Name: "content", Usage: "Object body given inline"},
		&cli.StringFlag{Name: "encoding", Usage: "How --content is encoded: text or base64", Value: "text"},
		&cli.StringFlag{Name: "content-type", Usage: "Content type (detected when empty)"},
		&cli.StringSliceFlag{Name: "meta", Usage: "Custom metadata as name=value (repeatable)"},
		&cli.StringFlag{Name: "storage-class", Usage: "STANDARD, REDUCED_REDUNDANCY or STANDARD_IA"},
	}
}

func downloadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{Name: "range-start", Usage: "First byte to read"},
		&cli.Int64Flag{Name: "range-end", Usage: "Last byte to read (inclusive)"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the body to this file instead of stdout"},
	}
}

func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "prefix", Usage: "Only keys starting with this prefix"},
		&cli.StringFlag{Name: "delimiter", Usage: "Group keys sharing a prefix up to this delimiter"},
		&cli.IntFlag{Name: "max-keys", Usage: "Page size (1-1000)"},
		&cli.StringFlag{Name: "continuation-token", Usage: "Token from the previous page"},
		&cli.StringFlag{Name: "start-after", Usage: "List keys after this one"},
	}
}

func copyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "source-bucket", Usage: "Bucket to copy from", Required: true},
		&cli.StringFlag{Name: "source-key", Usage: "Key to copy from", Required: true},
		&cli.StringFlag{Name: "directive", Usage: "Metadata directive: COPY or REPLACE", Value: "COPY"},
		&cli.StringFlag{Name: "content-type", Usage: "Content type (REPLACE only)"},
		&cli.StringSliceFlag{Name: "meta", Usage: "Metadata as name=value (REPLACE only, repeatable)"},
	}
}

func deleteManyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "keys", Usage: "Key to delete (repeatable)"},
		&cli.StringFlag{Name: "keys-file", Usage: "File with one key per line"},
		&cli.IntFlag{Name: "concurrency", Usage: "Parallel deletes; 1 stops at the first failure", Value: 1, EnvVars: []string{"BATCH_DELETE_CONCURRENCY"}},
	}
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func bucketCommand() *cli.Command {
	return &cli.Command{
		Name:  "bucket",
		Usage: "Bucket lifecycle and CORS (control plane)",
		Subcommands: []*cli.Command{
			{Name: "list", Usage: "List buckets", Action: runKind(r2.ResourceBucket, r2.OpList)},
			{
				Name:  "create",
				Usage: "Create a bucket",
				Flags: []cli.Flag{
					bucketFlag(),
					&cli.StringFlag{Name: "location-hint", Usage: "Placement hint, e.g. wnam or eeur"},
					&cli.StringFlag{Name: "jurisdiction", Usage: "Data jurisdiction, e.g. eu"},
				},
				Action: runKind(r2.ResourceBucket, r2.OpCreate),
			},
			{Name: "get", Usage: "Show a bucket", Flags: []cli.Flag{bucketFlag()}, Action: runKind(r2.ResourceBucket, r2.OpGet)},
			{Name: "delete", Usage: "Delete an empty bucket", Flags: []cli.Flag{bucketFlag()}, Action: runKind(r2.ResourceBucket, r2.OpDelete)},
			{Name: "get-cors", Usage: "Show the CORS rules of a bucket", Flags: []cli.Flag{bucketFlag()}, Action: runKind(r2.ResourceBucket, r2.OpGetCORS)},
			{
				Name:   "set-cors",
				Usage:  "Replace the CORS rules of a bucket",
				Flags:  withFlags([]cli.Flag{bucketFlag()}, corsFlags()),
				Action: runKind(r2.ResourceBucket, r2.OpSetCORS),
			},
			{Name: "delete-cors", Usage: "Remove every CORS rule of a bucket", Flags: []cli.Flag{bucketFlag()}, Action: runKind(r2.ResourceBucket, r2.OpDeleteCORS)},
		},
	}
}

func objectCommand() *cli.Command {
	return &cli.Command{
		Name:  "object",
		Usage: "Object operations (signed data plane)",
		Subcommands: []*cli.Command{
			{
				Name:   "upload",
				Usage:  "Upload one object",
				Flags:  withFlags([]cli.Flag{bucketFlag(), keyFlag()}, uploadFlags()),
				Action: runKind(r2.ResourceObject, r2.OpUpload),
			},
			{
				Name:   "download",
				Usage:  "Download one object",
				Flags:  withFlags([]cli.Flag{bucketFlag(), keyFlag()}, downloadFlags()),
				Action: runKind(r2.ResourceObject, r2.OpDownload),
			},
			{Name: "head", Usage: "Show object metadata", Flags: []cli.Flag{bucketFlag(), keyFlag()}, Action: runKind(r2.ResourceObject, r2.OpGetMetadata)},
			{Name: "delete", Usage: "Delete one object", Flags: []cli.Flag{bucketFlag(), keyFlag()}, Action: runKind(r2.ResourceObject, r2.OpDelete)},
			{
				Name:   "list",
				Usage:  "List one page of objects",
				Flags:  withFlags([]cli.Flag{bucketFlag()}, listFlags()),
				Action: runKind(r2.ResourceObject, r2.OpList),
			},
			{
				Name:   "copy",
				Usage:  "Copy an object server-side into --bucket/--key",
				Flags:  withFlags([]cli.Flag{bucketFlag(), keyFlag()}, copyFlags()),
				Action: runKind(r2.ResourceObject, r2.OpCopy),
			},
		},
	}
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Multi-object operations",
		Subcommands: []*cli.Command{
			{
				Name:   "delete",
				Usage:  "Delete up to 1000 keys",
				Flags:  withFlags([]cli.Flag{bucketFlag()}, deleteManyFlags()),
				Action: runKind(r2.ResourceBatch, r2.OpDeleteMultiple),
			},
		},
	}
}

// runCommand addresses operations by resource and operation name, e.g.
// "r2ctl run object getMetadata --bucket b --key k".
func runCommand() *cli.Command {
	bucket := bucketFlag()
	bucket.Required = false
	key := keyFlag()
	key.Required = false

	flags := withFlags(
		[]cli.Flag{
			bucket, key,
			&cli.StringFlag{Name: "location-hint", Usage: "Placement hint for bucket create"},
			&cli.StringFlag{Name: "jurisdiction", Usage: "Jurisdiction for bucket create"},
			&cli.StringFlag{Name: "source-bucket", Usage: "Bucket to copy from"},
			&cli.StringFlag{Name: "source-key", Usage: "Key to copy from"},
			&cli.StringFlag{Name: "directive", Usage: "Metadata directive: COPY or REPLACE", Value: "COPY"},
		},
		corsFlags(), uploadFlags(), downloadFlags(), listFlags(), deleteManyFlags(),
	)

	return &cli.Command{
		Name:      "run",
		Usage:     "Run any operation by resource and operation name",
		ArgsUsage: "<bucket|object|batch> <operation>",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("expected <resource> <operation>", 2)
			}
			k, err := r2.ParseOperation(c.Args().Get(0), c.Args().Get(1))
			if err != nil {
				return err
			}
			return execute(c, k)
		},
	}
}

func runKind(r r2.Resource, op string) cli.ActionFunc {
	return func(c *cli.Context) error {
		return execute(c, r2.KindFor(r, op))
	}
}

func execute(c *cli.Context, k r2.Kind) error {
	svc, err := storageService(c)
	if err != nil {
		return err
	}
	cmd, err := buildCommand(k, paramsFrom(c))
	if err != nil {
		return err
	}

	res, err := svc.Run(c.Context, credentialFrom(c), cmd)
	if err != nil {
		// A failed batch still reports which keys were removed.
		if res != nil && res.Deleted != nil {
			if werr := writeJSON(c.App.Writer, res.Deleted); werr != nil {
				log.Warn().Err(werr).Msg("could not write partial result")
			}
		}
		return err
	}

	if res.Download != nil {
		return writeDownload(c, res)
	}
	return writeJSON(c.App.Writer, res)
}

func writeDownload(c *cli.Context, res *r2.Result) error {
	out := c.String("output")
	if out == "" {
		_, err := c.App.Writer.Write(res.Download.Data)
		return err
	}
	if err := os.WriteFile(out, res.Download.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return writeJSON(c.App.ErrWriter, res.Download.Object)
}

func writeJSON(w io.Writer, v any) error {
	if w == nil {
		return errors.New("no output writer")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
