package main

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/persistorai/revisor/client"
)

func newDocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "document",
		Aliases: []string{"doc"},
		Short:   "Create, read and revise documents",
	}
	cmd.AddCommand(documentListCmd())
	cmd.AddCommand(documentGetCmd())
	cmd.AddCommand(documentCreateCmd())
	cmd.AddCommand(documentReviseCmd())
	return cmd
}

func documentRows(docs ...client.Document) table {
	return func() ([]string, [][]string) {
		rows := make([][]string, 0, len(docs))
		for _, d := range docs {
			last := "-"
			if d.LastRevisionNumber != nil {
				last = strconv.Itoa(*d.LastRevisionNumber)
			}
			rows = append(rows, []string{d.ID, d.Type, last, timestamp(d.UpdatedAt)})
		}
		return []string{"ID", "TYPE", "REVISION", "UPDATED"}, rows
	}
}

func documentListCmd() *cobra.Command {
	var opts client.ListOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, most recently updated first",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			docs, _, err := apiClient.Documents.List(context.Background(), &opts)
			if err != nil {
				fatal("list documents", err)
			}
			ids := make([]string, len(docs))
			for i, d := range docs {
				ids[i] = d.ID
			}
			output(docs, documentRows(docs...), ids...)
		},
	}
	cmd.Flags().StringVar(&opts.Type, "type", "", "Filter by document type")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Max results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Pagination offset")
	return cmd
}

func documentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a document by ID",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doc, err := apiClient.Documents.Get(context.Background(), args[0])
			if err != nil {
				fatal("get document", err)
			}
			output(doc, fieldRows(doc.Fields), doc.ID)
		},
	}
}

func fieldRows(fields map[string]any) table {
	return func() ([]string, [][]string) {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		rows := make([][]string, 0, len(names))
		for _, name := range names {
			rows = append(rows, []string{name, cell(fields[name])})
		}
		return []string{"FIELD", "VALUE"}, rows
	}
}

// parseAssignments turns key=value pairs into a field map. Values that parse
// as JSON keep their JSON type; anything else is a string.
func parseAssignments(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, &assignmentError{pair: p}
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		fields[key] = v
	}
	return fields, nil
}

type assignmentError struct{ pair string }

func (e *assignmentError) Error() string {
	return "expected key=value, got " + strconv.Quote(e.pair)
}

func documentCreateCmd() *cobra.Command {
	var id string
	var sets []string
	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create a document",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fields, err := parseAssignments(sets)
			if err != nil {
				fatal("parse --set", err)
			}
			doc, err := apiClient.Documents.Create(context.Background(), &client.CreateDocumentRequest{
				ID: id, Type: args[0], Fields: fields,
			})
			if err != nil {
				fatal("create document", err)
			}
			output(doc, documentRows(*doc), doc.ID)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Document ID (generated when empty)")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment key=value (repeatable)")
	return cmd
}

func documentReviseCmd() *cobra.Command {
	var sets []string
	var req client.ReviseRequest
	cmd := &cobra.Command{
		Use:   "revise <id>",
		Short: "Apply field changes and record a revision",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			fields, err := parseAssignments(sets)
			if err != nil {
				fatal("parse --set", err)
			}
			req.Fields = fields
			res, err := apiClient.Documents.Revise(context.Background(), args[0], &req)
			if err != nil {
				fatal("revise document", err)
			}
			quiet := "-"
			if res.Revision != nil {
				quiet = strconv.Itoa(res.Revision.Number)
			}
			var tbl table
			if res.Revision != nil {
				tbl = revisionRows(*res.Revision)
			}
			output(res, tbl, quiet)
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment key=value (repeatable)")
	cmd.Flags().StringVar(&req.Type, "type", "", "Revision type: change|snapshot|event")
	cmd.Flags().StringVarP(&req.Message, "message", "m", "", "Revision message")
	cmd.Flags().StringVar(&req.Tag, "tag", "", "Revision tag")
	cmd.Flags().StringVar(&req.Author, "author", "", "Acting user")
	cmd.Flags().BoolVar(&req.Soft, "soft", false, "Report a failed save instead of failing")
	return cmd
}
