package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"sigs.k8s.io/yaml"

	"github.com/deskhand/deskhand/internal/common/httpclient"
	"github.com/deskhand/deskhand/pkg/api"
)

// catalogCmd represents the catalog command
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the software catalog",
	Long: `Manage the software catalog on the deskhand server. The catalog lists the
software titles users may request, each mapped to the install job and winget
package that fulfills it.

Examples:
  # List the catalog
  deskctl catalog list

  # Load catalog entries from a YAML file
  deskctl catalog apply -f catalog.yaml

  # List the catalog in JSON format
  deskctl catalog list -j`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// catalogListCmd represents the catalog list command
var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the software catalog",
	RunE:  listCatalog,
}

// catalogApplyCmd represents the catalog apply command
var catalogApplyCmd = &cobra.Command{
	Use:   "apply -f FILENAME",
	Short: "Create or update catalog entries from a YAML file",
	Long: `Create or update catalog entries from a YAML file. The file holds a list of
entries, each with software_name, version, job_id, and winget_id. Entries are
matched on software_name and version; existing rows are updated in place.`,
	RunE: applyCatalog,
}

// listCatalog retrieves the catalog and prints it
func listCatalog(cmd *cobra.Command, args []string) error {
	client := httpclient.NewClient(GetConfig())

	response, err := client.ListResources("catalog", nil)
	if err != nil {
		return err
	}

	var entries []api.CatalogEntry
	if err := json.Unmarshal(response, &entries); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}

	if jsonOutput {
		output := map[string]any{
			"result": 1,
			"value":  entries,
		}
		jsonBytes, err := json.MarshalIndent(output, "", "    ")
		if err != nil {
			return fmt.Errorf("failed to format JSON output: %v", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	fmt.Printf("%s:\n", cases.Title(language.English).String("catalog"))
	for _, entry := range entries {
		fmt.Printf("- %s (%s)", entry.SoftwareName, entry.Version)
		if entry.WingetID != "" {
			fmt.Printf("  winget: %s", entry.WingetID)
		}
		fmt.Println()
	}
	return nil
}

// applyCatalog loads catalog entries from a YAML file and upserts them
func applyCatalog(cmd *cobra.Command, args []string) error {
	filename, err := cmd.Flags().GetString("filename")
	if err != nil {
		return err
	}
	if filename == "" {
		return fmt.Errorf("filename is required")
	}

	entries, err := LoadCatalogFile(filename)
	if err != nil {
		return err
	}

	body, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode catalog entries: %v", err)
	}

	client := httpclient.NewClient(GetConfig())
	response, _, err := client.CreateResource("catalog", body, nil)
	if err != nil {
		return err
	}

	var result struct {
		Upserted int `json:"upserted"`
	}
	if err := json.Unmarshal(response, &result); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}

	if jsonOutput {
		printJSON(map[string]int{"result": 1, "upserted": result.Upserted})
	} else {
		okLabel.Fprintf(os.Stdout, "[OK] ")
		fmt.Fprintf(os.Stdout, "Upserted %d catalog entries\n", result.Upserted)
	}
	return nil
}

// LoadCatalogFile reads a YAML file holding a list of catalog entries and
// validates each entry before returning them.
func LoadCatalogFile(filename string) ([]api.CatalogEntry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to read file: %w", err)
	}

	var entries []api.CatalogEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unable to parse catalog file: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog file holds no entries")
	}
	for i, entry := range entries {
		if entry.SoftwareName == "" || entry.Version == "" {
			return nil, fmt.Errorf("entry %d: software_name and version are required", i+1)
		}
		if entry.JobID == "" || entry.WingetID == "" {
			return nil, fmt.Errorf("entry %d: job_id and winget_id are required", i+1)
		}
	}
	return entries, nil
}

// init initializes the catalog command with its subcommands and flags
func init() {
	catalogApplyCmd.Flags().StringP("filename", "f", "", "Filename to load catalog entries from")
	catalogApplyCmd.MarkFlagRequired("filename")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogApplyCmd)
	rootCmd.AddCommand(catalogCmd)
}
