package cli

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/deskhand/deskhand/internal/common/httpclient"
	"github.com/deskhand/deskhand/pkg/api"
)

// requiredApiVersion is the server API version range this CLI understands.
const requiredApiVersion = "~0.1"

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Get server version and health",
	Long: `Get server version and health. This command returns the server version,
the wire API version, and whether this CLI is compatible with the server.

Examples:
  # Get server status
  deskctl status

  # Get server status in JSON format
  deskctl status -j`,
	RunE: getStatus,
}

// getStatus handles retrieving server status information
func getStatus(cmd *cobra.Command, args []string) error {
	// Load the config file first
	LoadConfig(configFile)

	config := GetConfig()
	if config == nil {
		if jsonOutput {
			kv := map[string]string{
				"version_cli": getCLIVersion(),
				"error":       "Config file cannot be loaded",
			}
			printJSON(kv)
		} else {
			fmt.Printf("deskctl %s\n", getCLIVersion())
			fmt.Println("Error: Config file cannot be loaded")
		}
		return ErrAlreadyHandled
	}

	client := httpclient.NewClient(config)

	opts := httpclient.RequestOptions{
		Method: "GET",
		Path:   "version",
	}

	response, _, err := client.DoRequest(opts)
	if err != nil {
		if jsonOutput {
			kv := map[string]string{
				"version_cli": getCLIVersion(),
				"error":       "Unable to connect to server: " + err.Error(),
			}
			printJSON(kv)
		} else {
			fmt.Printf("deskctl %s\n", getCLIVersion())
			fmt.Println("Error: Unable to connect to server: " + err.Error())
		}
		return ErrAlreadyHandled
	}

	var versionRsp api.VersionResponse
	if err := json.Unmarshal(response, &versionRsp); err != nil {
		return fmt.Errorf("failed to parse response: %v", err)
	}

	compatible := isApiVersionCompatible(versionRsp.ApiVersion)

	if jsonOutput {
		output := map[string]any{
			"result":      1,
			"version_cli": getCLIVersion(),
			"compatible":  compatible,
			"value":       versionRsp,
		}

		jsonBytes, err := json.MarshalIndent(output, "", "    ")
		if err != nil {
			return fmt.Errorf("failed to format JSON output: %v", err)
		}
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("deskctl %s\n", getCLIVersion())
		fmt.Printf("Server Version: %s\n", versionRsp.ServerVersion)
		fmt.Printf("API Version: %s\n", versionRsp.ApiVersion)
		if !compatible {
			errorLabel.Printf("Warning: ")
			fmt.Printf("server API version %s is outside the supported range %s\n",
				versionRsp.ApiVersion, requiredApiVersion)
		}
	}

	return nil
}

// isApiVersionCompatible reports whether the server's API version falls in
// the range this CLI supports.
func isApiVersionCompatible(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	c, err := semver.NewConstraint(requiredApiVersion)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// init initializes the status command and adds it to the root command
func init() {
	rootCmd.AddCommand(statusCmd)
}
