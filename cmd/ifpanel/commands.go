package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// accountFlag reads the shared --account flag.
func accountFlag(cmd *cobra.Command) string {
	account, _ := cmd.Flags().GetString("account")
	return account
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify panel authentication",
	Long:  "Probes a protected panel page and reports whether the configured cookies or credentials are accepted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		result, err := a.svc.Verify(ctx)
		if err != nil {
			return err
		}
		if result.Authenticated {
			fmt.Printf("Authenticated (%s)\n", result.Detail)
			return nil
		}
		fmt.Printf("Not authenticated (%s)\n", result.Detail)
		return nil
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List hosting accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		accounts, err := a.svc.ListAccounts(ctx)
		if err != nil {
			return err
		}
		return printJSON(accounts)
	},
}

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List domains on an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		domains, err := a.svc.ListDomains(ctx, accountFlag(cmd))
		if err != nil {
			return err
		}
		return printJSON(domains)
	},
}

var dnsCmd = &cobra.Command{
	Use:   "dns",
	Short: "Manage DNS records",
}

var dnsListCmd = &cobra.Command{
	Use:   "list <domain>",
	Short: "List DNS records for a domain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		records, err := a.svc.ListDNSRecords(ctx, accountFlag(cmd), args[0])
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var dnsCnameCmd = &cobra.Command{
	Use:   "create-cname <domain> <host> <target>",
	Short: "Create a CNAME record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		result, err := a.svc.CreateCNAME(ctx, accountFlag(cmd), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

var dnsMxCmd = &cobra.Command{
	Use:   "create-mx <domain> <priority> <target>",
	Short: "Create an MX record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		result, err := a.svc.CreateMX(ctx, accountFlag(cmd), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

var dnsTxtCmd = &cobra.Command{
	Use:   "create-txt <domain> <name> <content>",
	Short: "Create a TXT record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		result, err := a.svc.CreateTXT(ctx, accountFlag(cmd), args[0], args[1], args[2])
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

var dnsDeleteCmd = &cobra.Command{
	Use:   "delete <delete-handle>",
	Short: "Delete a DNS record by its delete handle",
	Long:  "Deletes a DNS record using the delete handle reported by 'dns list'.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		result, err := a.svc.DeleteDNSRecord(ctx, accountFlag(cmd), args[0])
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		if !result.Confirmed {
			fmt.Println("(not confirmed by the panel; verify with 'dns list')")
		}
		return nil
	},
}

func init() {
	dnsCmd.AddCommand(dnsListCmd)
	dnsCmd.AddCommand(dnsCnameCmd)
	dnsCmd.AddCommand(dnsMxCmd)
	dnsCmd.AddCommand(dnsTxtCmd)
	dnsCmd.AddCommand(dnsDeleteCmd)

	registerCmd.AddCommand(registerFreeCmd)
	registerCmd.AddCommand(registerSubCmd)
}

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "List available free subdomain extensions",
	Long:  "Fetches the free-subdomain suffix catalog from the registration form. Launches a browser.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		extensions, err := a.svc.ListAvailableExtensions(ctx, accountFlag(cmd))
		if err != nil {
			return err
		}
		return printJSON(extensions)
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register domains and subdomains",
}

var registerFreeCmd = &cobra.Command{
	Use:   "free <subdomain> <extension>",
	Short: "Register a free subdomain",
	Long:  "Registers <subdomain>.<extension> as a new free domain. Launches a browser.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		result, err := a.svc.RegisterFreeDomain(ctx, accountFlag(cmd), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

var registerSubCmd = &cobra.Command{
	Use:   "subdomain <parent-domain> <subdomain>",
	Short: "Register a subdomain under an owned domain",
	Long:  "Registers <subdomain>.<parent-domain> under a domain the account already owns. Launches a browser.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		result, err := a.svc.RegisterCustomSubdomain(ctx, accountFlag(cmd), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	},
}

var deleteDomainCmd = &cobra.Command{
	Use:   "delete-domain <domain>",
	Short: "Delete a domain from an account",
	Long:  "Removes a domain through the panel's domain detail page. Launches a browser.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, cancel := signalContext()
		defer cancel()

		result, err := a.svc.DeleteDomain(ctx, accountFlag(cmd), args[0])
		if err != nil {
			return err
		}
		fmt.Println(result.Message)
		if !result.Confirmed {
			fmt.Println("(not confirmed by the panel; verify with 'domains')")
		}
		return nil
	},
}
