// cmd/tools/registry-updater/main.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	"credit-marketplace/internal/common/config"
	"credit-marketplace/internal/common/database"
	"credit-marketplace/pkg/registry"
)

var registryPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	indexCmd := flag.NewFlagSet("index", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, validateCmd, indexCmd} {
		fs.StringVar(&registryPath, "path", "configs/bank-registry.json", "Path to registry file")
	}

	// Add command flags
	idAdd := addCmd.String("id", "", "Bank ID (e.g., BANK_D)")
	displayName := addCmd.String("displayName", "", "Display Name (e.g., Harbour Green Bank)")
	endpoint := addCmd.String("endpoint", "", "Bank agent base URL; empty means in-process")
	baseRate := addCmd.Float64("baseRate", 0, "Base annual rate in percent")
	minRate := addCmd.Float64("minRate", 0, "Minimum interest rate in percent")
	maxLoan := addCmd.Float64("maxLoan", 0, "Maximum loan amount; 0 means uncapped")
	reputation := addCmd.Int("reputation", 50, "Reputation score used for ordering")
	appetite := addCmd.String("appetite", "moderate", "Risk appetite (conservative, moderate, aggressive)")
	esgMultiplier := addCmd.Float64("esgMultiplier", 0.8, "ESG multiplier")
	tags := addCmd.String("tags", "", "Comma separated tags")

	// Update command flags
	idUpdate := updateCmd.String("id", "", "Bank ID to update")
	field := updateCmd.String("field", "", "Field to update (status, endpoint, baseRate, etc.)")
	value := updateCmd.String("value", "", "New value for the field")

	// Index command flags
	esAddress := indexCmd.String("es", "http://localhost:9200", "Elasticsearch address")
	indexName := indexCmd.String("index", "bank-registry", "Target index")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *idAdd == "" || *displayName == "" || *baseRate <= 0 {
			fmt.Println("Error: id, displayName, and baseRate are required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		entry := registry.BankEntry{
			ID:              *idAdd,
			DisplayName:     *displayName,
			Roles:           []string{registry.RoleBank},
			Endpoint:        *endpoint,
			Status:          registry.StatusActive,
			BaseRate:        *baseRate,
			MinInterestRate: *minRate,
			MaxLoanAmount:   *maxLoan,
			ReputationScore: *reputation,
			RiskAppetite:    *appetite,
			ESGMultiplier:   *esgMultiplier,
			Tags:            splitTags(*tags),
		}
		if err := addBank(entry); err != nil {
			fmt.Printf("Error adding bank: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added bank: %s\n", *idAdd)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateBank(*idUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating bank: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated bank %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Failed to load registry: %v\n", err)
			os.Exit(1)
		}
		if err := reg.Validate(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d banks.\n", len(reg.Banks))

	case "index":
		indexCmd.Parse(os.Args[2:])
		n, err := indexBanks(*esAddress, *indexName)
		if err != nil {
			fmt.Printf("Error indexing registry: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Indexed %d banks into %s\n", n, *indexName)

	case "help":
		fallthrough
	default:
		help()
	}
}

func addBank(entry registry.BankEntry) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		reg = &registry.BankRegistry{Version: "1.0.0"}
	}

	if reg.Find(entry.ID) != nil {
		return fmt.Errorf("bank with ID %s already exists", entry.ID)
	}
	reg.Banks = append(reg.Banks, entry)

	if err := reg.Validate(); err != nil {
		return err
	}
	return registry.SaveRegistry(reg, registryPath)
}

func updateBank(id, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	bank := reg.Find(id)
	if bank == nil {
		return fmt.Errorf("bank with ID %s not found", id)
	}

	switch field {
	case "status":
		bank.Status = value
	case "endpoint":
		bank.Endpoint = value
	case "displayName":
		bank.DisplayName = value
	case "riskAppetite":
		bank.RiskAppetite = value
	case "tags":
		bank.Tags = splitTags(value)
	case "baseRate", "minInterestRate", "maxLoanAmount", "esgMultiplier":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid %s value: %w", field, err)
		}
		switch field {
		case "baseRate":
			bank.BaseRate = f
		case "minInterestRate":
			bank.MinInterestRate = f
		case "maxLoanAmount":
			bank.MaxLoanAmount = f
		default:
			bank.ESGMultiplier = f
		}
	case "reputationScore":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid reputationScore value: %w", err)
		}
		bank.ReputationScore = n
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	if err := reg.Validate(); err != nil {
		return err
	}
	return registry.SaveRegistry(reg, registryPath)
}

// indexBanks upserts every registry entry into the search index, keyed by bank id.
func indexBanks(address, index string) (int, error) {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return 0, fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return 0, err
	}

	es, err := database.NewElasticsearch(config.ElasticsearchConfig{URL: address})
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := es.EnsureBankIndex(ctx, index)
	if err != nil {
		return 0, err
	}
	if created {
		fmt.Printf("Created index %s\n", index)
	}

	for _, bank := range reg.Banks {
		body, err := json.Marshal(bank)
		if err != nil {
			return 0, fmt.Errorf("marshal %s: %w", bank.ID, err)
		}
		req := esapi.IndexRequest{
			Index:      index,
			DocumentID: bank.ID,
			Body:       bytes.NewReader(body),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, es.Client)
		if err != nil {
			return 0, fmt.Errorf("index %s: %w", bank.ID, err)
		}
		res.Body.Close()
		if res.IsError() {
			return 0, fmt.Errorf("index %s failed: %s", bank.ID, res.String())
		}
	}
	return len(reg.Banks), nil
}

func splitTags(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func help() {
	fmt.Print(`
Usage: registry-updater <command> [flags]

Commands:
  add      Add a new bank to the registry
  update   Update an existing bank's field
  validate Validate the registry file
  index    Push the registry into Elasticsearch for discovery
  help     Show this help message

Examples:
  registry-updater add -id BANK_D -displayName "Harbour Green Bank" -baseRate 4.4 -maxLoan 750000 -endpoint http://localhost:8104
  registry-updater update -id BANK_D -field status -value suspended
  registry-updater validate -path configs/bank-registry.json
  registry-updater index -es http://localhost:9200 -index bank-registry

Use 'registry-updater <command> -h' for more information about a command.
`)
}
