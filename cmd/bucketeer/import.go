package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/bucketeer/internal/cli"
	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/model"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import records or buckets from a YAML file",
		Long: `Load applicant records or classification buckets into the local database.

Files may be YAML or JSON. Either a bare list or a document with a top-level
"records:" / "buckets:" key is accepted. Importing an existing ID or bucket
name replaces it.`,
	}

	cmd.AddCommand(importRecordsCmd())
	cmd.AddCommand(importBucketsCmd())

	return cmd
}

func importRecordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "records <file>",
		Short: "Import applicant records",
		Example: `  bucketeer import records applicants.yaml

  # applicants.yaml
  records:
    - id: rec001
      fields:
        Name: Ada Lovelace
        Why do you want to join?: To learn.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readFile(args[0], parseRecords)
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveRecords(cmd.Context(), records); err != nil {
				return fmt.Errorf("failed to save records: %w", err)
			}

			common.LogInfo("Imported records", common.Fields{"count": len(records), "file": args[0]})
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Imported %d record(s) from %s", len(records), args[0])))
			return nil
		},
	}
}

func importBucketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buckets <file>",
		Short: "Import classification buckets",
		Example: `  bucketeer import buckets buckets.yaml

  # buckets.yaml
  buckets:
    - name: Technical Governance
      description: Standards, audits and technical policy work.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buckets, err := readFile(args[0], parseBuckets)
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveBuckets(cmd.Context(), buckets); err != nil {
				return fmt.Errorf("failed to save buckets: %w", err)
			}

			common.LogInfo("Imported buckets", common.Fields{"count": len(buckets), "file": args[0]})
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Imported %d bucket(s) from %s", len(buckets), args[0])))
			return nil
		},
	}
}

func readFile[T any](path string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	items, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return items, nil
}

type recordDoc struct {
	Fields map[string]any `yaml:"fields"`
	ID     string         `yaml:"id"`
}

// parseRecords reads records from a YAML or JSON document. Scalar field
// values are stored as text; null becomes an empty string.
func parseRecords(r io.Reader) ([]model.Record, error) {
	var docs []recordDoc
	if err := decodeList(r, "records", &docs); err != nil {
		return nil, err
	}

	records := make([]model.Record, 0, len(docs))
	for i, doc := range docs {
		id := strings.TrimSpace(doc.ID)
		if id == "" {
			return nil, fmt.Errorf("record %d: id is required", i+1)
		}

		fields := make(map[string]string, len(doc.Fields))
		for name, value := range doc.Fields {
			if value == nil {
				fields[name] = ""
				continue
			}
			switch v := value.(type) {
			case string:
				fields[name] = v
			case map[string]any, []any:
				return nil, fmt.Errorf("record %s: field %q must be a scalar", id, name)
			default:
				fields[name] = fmt.Sprint(v)
			}
		}
		records = append(records, model.Record{ID: id, Fields: fields})
	}
	return records, nil
}

// parseBuckets reads buckets from a YAML or JSON document.
func parseBuckets(r io.Reader) ([]model.Bucket, error) {
	var buckets []model.Bucket
	if err := decodeList(r, "buckets", &buckets); err != nil {
		return nil, err
	}
	for i := range buckets {
		buckets[i].Name = strings.TrimSpace(buckets[i].Name)
		if buckets[i].Name == "" {
			return nil, fmt.Errorf("bucket %d: name is required", i+1)
		}
	}
	return buckets, nil
}

// decodeList decodes either a bare sequence or the sequence under key.
func decodeList(r io.Reader, key string, out any) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("file is empty")
		}
		return err
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	switch root.Kind {
	case yaml.SequenceNode:
		return root.Decode(out)
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == key {
				return root.Content[i+1].Decode(out)
			}
		}
		return fmt.Errorf("no %q key found", key)
	default:
		return fmt.Errorf("expected a list of %s", key)
	}
}
