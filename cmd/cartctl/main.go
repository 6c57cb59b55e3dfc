// cartctl is a CLI tool for driving a running cart daemon.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	cartctl get [-daemon URL] [-session ID -token TOK]
//	cartctl add -product ID [-price N] [-name NAME] [-size S] [-color C] [-qty N]
//	cartctl update -product ID [-size S] [-color C] -qty N
//	cartctl remove -product ID [-size S] [-color C]
//	cartctl clear
//	cartctl validate -product ID -qty N [-size S] [-color C]
//	cartctl watch
//
// Examples:
//
//	cartctl add -product 60 -price 19.90 -size M -color Blue -qty 2
//	cartctl validate -product 60 -qty 5
//	cartctl watch
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var client = &http.Client{Timeout: 30 * time.Second}

// Global flags (apply to all commands)
var (
	daemonURL string
	sessionID string
	token     string
	quiet     bool
	noColor   bool
)

// ANSI color codes
var (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorCyan, colorGray = "", "", "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "get":
		runGet(args)
	case "add":
		runAdd(args)
	case "update":
		runUpdate(args)
	case "remove":
		runRemove(args)
	case "clear":
		runClear(args)
	case "validate":
		runValidate(args)
	case "watch":
		runWatch(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `cartctl - cart daemon control tool

Usage:
  cartctl <command> [options]

Commands:
  get       Show the current cart
  add       Add a product selection to the cart
  update    Change the quantity of a cart line
  remove    Remove a cart line
  clear     Empty the cart
  validate  Validate a quantity against live stock
  watch     Stream cart change events

Examples:
  cartctl add -product 60 -price 19.90 -size M -color Blue -qty 2
  cartctl update -product 60 -size M -color Blue -qty 4
  cartctl validate -product 60 -qty 5
  cartctl watch

Run 'cartctl <command> -h' for command-specific options.
`)
}

// newFlagSet creates a flag set with the flags every command shares.
func newFlagSet(name, usage string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&daemonURL, "daemon", "http://127.0.0.1:7464", "Cart daemon base URL")
	fs.StringVar(&sessionID, "session", "", "Session ID (omit for a guest cart)")
	fs.StringVar(&token, "token", "", "Store API bearer token (omit for a guest cart)")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - raw JSON output only")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cartctl %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs
}

// === Commands ===

func runGet(args []string) {
	fs := newFlagSet("get", "get [options]")
	fs.Parse(args)
	finishFlags()

	resp, err := doRequest("GET", "/cart", nil)
	if err != nil {
		fatal("Failed to get cart: %v", err)
	}
	printCart(resp)
}

func runAdd(args []string) {
	fs := newFlagSet("add", "add -product ID [options]")
	var productID, name, size, color, variantID string
	var price float64
	var qty int
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	fs.StringVar(&name, "name", "", "Product display name")
	fs.Float64Var(&price, "price", 0, "Product base price")
	fs.StringVar(&size, "size", "", "Selected size")
	fs.StringVar(&color, "color", "", "Selected color")
	fs.StringVar(&variantID, "variant", "", "Explicit variant ID")
	fs.IntVar(&qty, "qty", 1, "Quantity")
	fs.Parse(args)
	finishFlags()

	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}

	product := map[string]interface{}{"id": productID, "name": name}
	if price > 0 {
		product["price"] = price
	}
	reqBody := map[string]interface{}{
		"product":  product,
		"quantity": qty,
	}
	if size != "" {
		reqBody["size"] = size
	}
	if color != "" {
		reqBody["color"] = color
	}
	if variantID != "" {
		reqBody["variant_id"] = variantID
	}

	resp, err := doRequest("POST", "/cart/items", reqBody)
	if err != nil {
		fatal("Failed to add item: %v", err)
	}
	printSuccess("Item added")
	printCart(resp)
}

func runUpdate(args []string) {
	fs := newFlagSet("update", "update -product ID -qty N [options]")
	var productID, size, color string
	var qty int
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	fs.StringVar(&size, "size", "", "Selected size of the line")
	fs.StringVar(&color, "color", "", "Selected color of the line")
	fs.IntVar(&qty, "qty", 0, "New quantity (required)")
	fs.Parse(args)
	finishFlags()

	if productID == "" || qty < 1 {
		fs.Usage()
		os.Exit(1)
	}

	reqBody := map[string]interface{}{
		"product_id": productID,
		"size":       size,
		"color":      color,
		"quantity":   qty,
	}

	resp, err := doRequest("PUT", "/cart/items", reqBody)
	if err != nil {
		fatal("Failed to update item: %v", err)
	}
	printSuccess("Item updated")
	printCart(resp)
}

func runRemove(args []string) {
	fs := newFlagSet("remove", "remove -product ID [options]")
	var productID, size, color string
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	fs.StringVar(&size, "size", "", "Selected size of the line")
	fs.StringVar(&color, "color", "", "Selected color of the line")
	fs.Parse(args)
	finishFlags()

	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}

	reqBody := map[string]interface{}{
		"product_id": productID,
		"size":       size,
		"color":      color,
	}

	resp, err := doRequest("POST", "/cart/items/remove", reqBody)
	if err != nil {
		fatal("Failed to remove item: %v", err)
	}
	printSuccess("Item removed")
	printCart(resp)
}

func runClear(args []string) {
	fs := newFlagSet("clear", "clear [options]")
	fs.Parse(args)
	finishFlags()

	resp, err := doRequest("POST", "/cart/clear", nil)
	if err != nil {
		fatal("Failed to clear cart: %v", err)
	}
	printSuccess("Cart cleared")
	printCart(resp)
}

func runValidate(args []string) {
	fs := newFlagSet("validate", "validate -product ID -qty N [options]")
	var productID, size, color, variantID string
	var qty int
	fs.StringVar(&productID, "product", "", "Product ID (required)")
	fs.StringVar(&size, "size", "", "Selected size")
	fs.StringVar(&color, "color", "", "Selected color")
	fs.StringVar(&variantID, "variant", "", "Variant ID")
	fs.IntVar(&qty, "qty", 1, "Requested quantity")
	fs.Parse(args)
	finishFlags()

	if productID == "" {
		fs.Usage()
		os.Exit(1)
	}

	reqBody := map[string]interface{}{
		"product_id": productID,
		"quantity":   qty,
	}
	if size != "" {
		reqBody["size"] = size
	}
	if color != "" {
		reqBody["color"] = color
	}
	if variantID != "" {
		reqBody["variant_id"] = variantID
	}

	resp, err := doRequest("POST", "/stock/validate", reqBody)
	if err != nil {
		fatal("Failed to validate stock: %v", err)
	}

	if ok, _ := resp["ok"].(bool); ok {
		printSuccess("Quantity available")
		return
	}
	msg, _ := resp["message"].(string)
	avail, _ := resp["available_quantity"].(float64)
	printError("Rejected: %s (available: %d)", msg, int(avail))
	os.Exit(1)
}

func runWatch(args []string) {
	fs := newFlagSet("watch", "watch [options]")
	fs.Parse(args)
	finishFlags()

	req, err := http.NewRequest("GET", daemonURL+"/cart/events", nil)
	if err != nil {
		fatal("Creating request: %v", err)
	}
	setSessionHeader(req)

	// The stream is open-ended; the shared client timeout would cut it off.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		fatal("Connecting to event stream: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fatal("Event stream returned status %d", resp.StatusCode)
	}

	printInfo("Watching cart events (Ctrl-C to stop)")
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				printInfo("Stream closed by daemon")
				return
			}
			fatal("Reading event stream: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var cart map[string]interface{}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &cart); err != nil {
			continue
		}
		printCart(cart)
	}
}

// === Request helpers ===

// finishFlags applies post-parse adjustments shared by all commands.
func finishFlags() {
	if noColor {
		disableColors()
	}
}

// setSessionHeader attaches the Cart-Session dictionary header when session
// flags are set.
func setSessionHeader(req *http.Request) {
	members := []string{}
	if sessionID != "" {
		members = append(members, fmt.Sprintf("id=%q", sessionID))
	}
	if token != "" {
		members = append(members, fmt.Sprintf("token=%q", token))
	}
	if len(members) > 0 {
		req.Header.Set("Cart-Session", strings.Join(members, ", "))
	}
}

func doRequest(method, path string, body interface{}) (map[string]interface{}, error) {
	var reqBody io.Reader
	if body != nil {
		reqJSON, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequest(method, daemonURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setSessionHeader(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= 400 {
		if errObj, ok := parsed["error"].(map[string]interface{}); ok {
			code, _ := errObj["code"].(string)
			message, _ := errObj["message"].(string)
			return nil, fmt.Errorf("%s: %s", code, message)
		}
		return nil, fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	return parsed, nil
}

// === Output helpers ===

// printCart renders an enriched cart. Quiet mode emits the raw JSON so
// scripts can pipe it to jq.
func printCart(cart map[string]interface{}) {
	if quiet {
		out, _ := json.Marshal(cart)
		fmt.Println(string(out))
		return
	}

	items, _ := cart["items"].([]interface{})
	if len(items) == 0 {
		fmt.Printf("%s(empty cart)%s\n", colorGray, colorReset)
		return
	}

	for _, item := range items {
		line, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := line["name"].(string)
		if name == "" {
			name, _ = line["product_id"].(string)
		}
		qty, _ := line["quantity"].(float64)
		price, _ := line["unit_price"].(float64)

		selection := ""
		if size, _ := line["selected_size"].(string); size != "" {
			selection = size
		}
		if color, _ := line["selected_color"].(string); color != "" {
			if selection != "" {
				selection += "/"
			}
			selection += color
		}
		if selection != "" {
			selection = " (" + selection + ")"
		}

		fmt.Printf("  %s%s%s%s  x%d  @ %.2f\n", colorCyan, name, colorReset, selection, int(qty), price)
	}

	totalQty, _ := cart["total_quantity"].(float64)
	total, _ := cart["total"].(float64)
	fmt.Printf("  %s%d item(s), total %.2f%s\n", colorGray, int(totalQty), total, colorReset)
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Printf("%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
