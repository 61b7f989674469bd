package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"asyncq/internal/domain"
)

func newSubmitCmd() *cobra.Command {
	var (
		id        string
		query     string
		queryType string
		principal string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Store a new QUEUED async query record",
		Example: `  asyncq submit --query '{ group { edges { node { name } } } }'
  echo '/group?sort=name' | asyncq submit --type JSONAPI_V1_0 --query -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if query == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read query from stdin: %w", err)
				}
				query = strings.TrimSpace(string(b))
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			q, err := a.Manager.SubmitQuery(cmd.Context(), &domain.AsyncQuery{
				ID:            id,
				Query:         query,
				QueryType:     domain.QueryType(queryType),
				PrincipalName: principal,
			})
			if err != nil {
				return err
			}
			return printQuery(cmd.OutOrStdout(), getOutputFormat(cmd), q)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Record id (generated when empty)")
	cmd.Flags().StringVar(&query, "query", "", "Query text, or - to read it from stdin")
	cmd.Flags().StringVar(&queryType, "type", string(domain.QueryTypeGraphQL), "Query type (GRAPHQL_V1_0, JSONAPI_V1_0)")
	cmd.Flags().StringVar(&principal, "principal", "", "Name of the submitting principal")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newGetCmd() *cobra.Command {
	var withResult bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an async query record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			if withResult {
				r, err := a.Manager.GetResult(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), getOutputFormat(cmd), r)
			}
			q, err := a.Manager.GetQuery(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printQuery(cmd.OutOrStdout(), getOutputFormat(cmd), q)
		},
	}

	cmd.Flags().BoolVar(&withResult, "result", false, "Show the stored result including its body")
	return cmd
}

func newUpdateStatusCmd() *cobra.Command {
	var (
		status string
		filter string
	)

	cmd := &cobra.Command{
		Use:   "update-status [id]",
		Short: "Change the status of one record or of every record matching a filter",
		Example: `  asyncq update-status 5f1c... --status PROCESSING
  asyncq update-status --filter "status==QUEUED;createdOn=le='2024-01-01T00:00Z'" --status TIMEDOUT`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (filter != "") {
				return fmt.Errorf("pass either a record id or --filter")
			}
			next, err := domain.ParseQueryStatus(strings.ToUpper(status))
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			if filter != "" {
				n, err := a.Manager.UpdateStatusCollection(cmd.Context(), filter, next)
				if err != nil {
					return err
				}
				return printCount(cmd.OutOrStdout(), getOutputFormat(cmd), "updated", n)
			}

			q, err := a.Manager.GetQuery(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := a.Manager.UpdateStatus(cmd.Context(), q, next); err != nil {
				return err
			}
			return printQuery(cmd.OutOrStdout(), getOutputFormat(cmd), q)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Target status (QUEUED, PROCESSING, COMPLETE, FAILURE, TIMEDOUT)")
	cmd.Flags().StringVar(&filter, "filter", "", "RSQL filter selecting the records to update")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete one record or every record matching a filter, with their results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (filter != "") {
				return fmt.Errorf("pass either a record id or --filter")
			}
			expr := filter
			if len(args) == 1 {
				if strings.Contains(args[0], "*") {
					return domain.ErrValidation("record id %q must not contain '*'", args[0])
				}
				expr = idFilter(args[0])
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			n, err := a.Manager.DeleteCollection(cmd.Context(), expr)
			if err != nil {
				return err
			}
			if len(args) == 1 && n == 0 {
				return domain.ErrNotFound("async query %q not found", args[0])
			}
			return printCount(cmd.OutOrStdout(), getOutputFormat(cmd), "deleted", n)
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "RSQL filter selecting the records to delete")
	return cmd
}

// idFilter builds an exact-match filter for id.
func idFilter(id string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return fmt.Sprintf("id=='%s'", r.Replace(id))
}
