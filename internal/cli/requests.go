package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/deskhand/deskhand/internal/common/httpclient"
	"github.com/deskhand/deskhand/pkg/api"
)

var requestsStatus string

// requestsCmd represents the requests command
var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect install requests",
	Long: `Inspect install requests on the deskhand server as they move through the
approval and install pipeline.

Examples:
  # List all install requests
  deskctl requests list

  # List only requests waiting for approval
  deskctl requests list -s ticket_created

  # Show one request
  deskctl requests get 42`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// requestsListCmd represents the requests list command
var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List install requests",
	RunE:  listRequests,
}

// requestsGetCmd represents the requests get command
var requestsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one install request",
	Args:  cobra.ExactArgs(1),
	RunE:  getRequest,
}

// listRequests retrieves install requests and prints them
func listRequests(cmd *cobra.Command, args []string) error {
	client := httpclient.NewClient(GetConfig())

	response, err := client.ListResources("requests", nil)
	if err != nil {
		return err
	}

	var requests []api.RequestSummary
	if err := json.Unmarshal(response, &requests); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}

	if requestsStatus != "" {
		filtered := requests[:0]
		for _, req := range requests {
			if req.Status == requestsStatus {
				filtered = append(filtered, req)
			}
		}
		requests = filtered
	}

	if jsonOutput {
		output := map[string]any{
			"result": 1,
			"value":  requests,
		}
		jsonBytes, err := json.MarshalIndent(output, "", "    ")
		if err != nil {
			return fmt.Errorf("failed to format JSON output: %v", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Printf("%s:\n", cases.Title(language.English).String("requests"))
	for _, req := range requests {
		fmt.Printf("- #%d %s %s (%s) [%s]", req.ID, req.UserID, req.SoftwareName, req.Version, req.Status)
		if req.TicketNumber != "" {
			fmt.Printf(" ticket: %s", req.TicketNumber)
		}
		fmt.Println()
	}
	return nil
}

// getRequest retrieves one install request and prints it
func getRequest(cmd *cobra.Command, args []string) error {
	client := httpclient.NewClient(GetConfig())

	response, err := client.GetResource("requests", args[0], nil)
	if err != nil {
		return err
	}

	var req api.RequestSummary
	if err := json.Unmarshal(response, &req); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}

	if jsonOutput {
		output := map[string]any{
			"result": 1,
			"value":  req,
		}
		jsonBytes, err := json.MarshalIndent(output, "", "    ")
		if err != nil {
			return fmt.Errorf("failed to format JSON output: %v", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	printRequestPretty(req)
	return nil
}

// printRequestPretty prints one install request in a human-readable format
func printRequestPretty(req api.RequestSummary) {
	fmt.Printf("Request #%d\n", req.ID)
	fmt.Printf("  User: %s\n", req.UserID)
	fmt.Printf("  Software: %s (%s)\n", req.SoftwareName, req.Version)
	fmt.Printf("  Status: %s\n", req.Status)
	if req.TicketNumber != "" {
		fmt.Printf("  Ticket: %s\n", req.TicketNumber)
	}
	if req.RequestedAt != "" {
		fmt.Printf("  Requested: %s\n", req.RequestedAt)
	}
	if req.ApprovedBy != "" {
		fmt.Printf("  Approved By: %s\n", req.ApprovedBy)
	}
	if req.ApprovedAt != "" {
		fmt.Printf("  Approved: %s\n", req.ApprovedAt)
	}
	if req.AcceptedAt != "" {
		fmt.Printf("  Accepted: %s\n", req.AcceptedAt)
	}
	if req.FinishedAt != "" {
		fmt.Printf("  Finished: %s\n", req.FinishedAt)
	}
	if req.Logs != "" {
		fmt.Printf("  Logs: %s\n", req.Logs)
	}
}

// init initializes the requests command with its subcommands and flags
func init() {
	requestsListCmd.Flags().StringVarP(&requestsStatus, "status", "s", "", "Filter by request status")

	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsGetCmd)
	rootCmd.AddCommand(requestsCmd)
}
