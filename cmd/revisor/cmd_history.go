package main

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/persistorai/revisor/client"
)

func revisionRows(revs ...client.Revision) table {
	return func() ([]string, [][]string) {
		rows := make([][]string, 0, len(revs))
		for _, r := range revs {
			fields := make([]string, 0, len(r.RevisedAttributes))
			for name := range r.RevisedAttributes {
				fields = append(fields, name)
			}
			for relation := range r.RevisedEmbeds {
				fields = append(fields, relation+"[]")
			}
			sort.Strings(fields)
			rows = append(rows, []string{
				strconv.Itoa(r.Number), r.Type, timestamp(r.CreatedAt),
				optional(r.Author), optional(r.Tag), strings.Join(fields, ","), optional(r.Message),
			})
		}
		return []string{"NUMBER", "TYPE", "CREATED", "AUTHOR", "TAG", "FIELDS", "MESSAGE"}, rows
	}
}

func newRevisionsCmd() *cobra.Command {
	var author string
	cmd := &cobra.Command{
		Use:   "revisions <id> [number]",
		Short: "Show a document's revision log or one revision",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			if len(args) == 2 {
				number, err := parseNumber(args[1])
				if err != nil {
					fatal("parse revision number", err)
				}
				rev, err := apiClient.History.Revision(ctx, args[0], number)
				if err != nil {
					fatal("get revision", err)
				}
				output(rev, revisionRows(*rev), strconv.Itoa(rev.Number))
				return
			}

			revs, err := apiClient.History.Revisions(ctx, args[0], author)
			if err != nil {
				fatal("list revisions", err)
			}
			numbers := make([]string, len(revs))
			for i, r := range revs {
				numbers[i] = strconv.Itoa(r.Number)
			}
			output(revs, revisionRows(revs...), numbers...)
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "Only revisions recorded by this user")
	return cmd
}

func parseNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("revision number must be a non-negative integer")
	}
	return n, nil
}

func newHistoryCmd() *cobra.Command {
	var relation, item string
	cmd := &cobra.Command{
		Use:   "history <id> <field>",
		Short: "Show every recorded value of a field",
		Long:  "Show every recorded value of a field. With --relation and --item, show an embedded item's field.",
		Args:  cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if (relation == "") != (item == "") {
				return errors.New("--relation and --item must be given together")
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			var entries []client.FieldHistoryEntry
			var err error
			if relation != "" {
				entries, err = apiClient.History.EmbeddedField(ctx, args[0], relation, item, args[1])
			} else {
				entries, err = apiClient.History.Field(ctx, args[0], args[1])
			}
			if err != nil {
				fatal("field history", err)
			}
			values := make([]string, len(entries))
			for i, e := range entries {
				values[i] = cell(e.Value)
			}
			output(entries, historyRows(entries), values...)
		},
	}
	cmd.Flags().StringVar(&relation, "relation", "", "Embedded collection name")
	cmd.Flags().StringVar(&item, "item", "", "Embedded item ID")
	return cmd
}

func historyRows(entries []client.FieldHistoryEntry) table {
	return func() ([]string, [][]string) {
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				strconv.Itoa(e.Number), e.Type, timestamp(e.CreatedAt), optional(e.Author), cell(e.Value),
			})
		}
		return []string{"NUMBER", "TYPE", "CREATED", "AUTHOR", "VALUE"}, rows
	}
}

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <id> <number>",
		Short: "Show a document's tracked values as of a revision",
		Args:  cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			number, err := parseNumber(args[1])
			if err != nil {
				fatal("parse revision number", err)
			}
			state, err := apiClient.History.State(context.Background(), args[0], number)
			if err != nil {
				fatal("document state", err)
			}
			output(state, fieldRows(state.Fields), strconv.Itoa(state.Number))
		},
	}
}

func newAuthorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "authors <id>",
		Short: "List the users who revised a document",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			authors, err := apiClient.History.Authors(context.Background(), args[0])
			if err != nil {
				fatal("list authors", err)
			}
			output(authors, nil, authors...)
		},
	}
}
