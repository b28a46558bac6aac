// Package advisor backs the market advisor endpoint: a Gemini model with a
// read-only SQL tool over the marketplace schema, so users can ask things
// like "how does my asking price compare to the base price for jasmine
// rice" in plain language.
package advisor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Service holds the Gemini client and the read-only database connection.
type Service struct {
	Client *genai.Client
	DB     *sql.DB
}

// NewService initializes the Gemini client over the read-only pool.
func NewService(apiKey string, dbReadOnly *sql.DB) (*Service, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Service{Client: client, DB: dbReadOnly}, nil
}

// GenerateResponse answers one user question, letting the model issue
// read-only SELECT queries against the marketplace tables as needed.
func (s *Service) GenerateResponse(ctx context.Context, userMessage string, userRole string) (string, error) {
	model := s.Client.GenerativeModel("gemini-1.5-flash")

	// Tool: read-only SQL access
	sqlTool := &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "run_readonly_sql",
				Description: "Executes a READ-ONLY SQL query (SELECT only) to answer questions.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "The MySQL SELECT query to execute.",
						},
					},
					Required: []string{"query"},
				},
			},
		},
	}
	model.Tools = []*genai.Tool{sqlTool}

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(`
			You are the RiceLink market advisor. User role: %s.
			Access: MySQL database (run_readonly_sql).
			Schema: %s
			Rules: SELECT only. Prices are in Thai baht. Be concise.
			Compare listings against base_prices when asked about fair pricing.
		`, userRole, s.schemaDefinition()))},
	}

	cs := model.StartChat()
	res, err := cs.SendMessage(ctx, genai.Text(userMessage))
	if err != nil {
		return "", fmt.Errorf("error sending message: %w", err)
	}

	// Loop for Function Calls
	for {
		if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
			return "No response.", nil
		}
		part := res.Candidates[0].Content.Parts[0]

		funcCall, ok := part.(genai.FunctionCall)
		if !ok {
			return fmt.Sprintf("%v", part), nil
		}

		if funcCall.Name != "run_readonly_sql" {
			return "", fmt.Errorf("unknown function: %s", funcCall.Name)
		}

		query, ok := funcCall.Args["query"].(string)
		if !ok {
			return "", fmt.Errorf("invalid query argument")
		}
		log.Printf("Advisor running SQL: %s", query)

		sqlResult, sqlErr := s.runReadOnlyQuery(query)
		if sqlErr != nil {
			sqlResult = fmt.Sprintf("SQL Error: %v", sqlErr)
		}

		res, err = cs.SendMessage(ctx, genai.FunctionResponse{
			Name:     "run_readonly_sql",
			Response: map[string]interface{}{"result": sqlResult},
		})
		if err != nil {
			return "", fmt.Errorf("tool response error: %w", err)
		}
	}
}

// runReadOnlyQuery executes a SELECT and marshals the rows as JSON.
// Write statements are refused even though the pool itself is read-only.
func (s *Service) runReadOnlyQuery(query string) (string, error) {
	normalized := strings.ToUpper(query)
	for _, verb := range []string{"UPDATE", "DELETE", "DROP", "INSERT", "ALTER"} {
		if strings.Contains(normalized, verb) {
			return "", fmt.Errorf("security violation: modify operations are not allowed")
		}
	}

	rows, err := s.DB.Query(query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	columns, _ := rows.Columns()
	count := len(columns)
	tableData := []map[string]interface{}{}
	for rows.Next() {
		values := make([]interface{}, count)
		valuePtrs := make([]interface{}, count)
		for i := range columns {
			valuePtrs[i] = &values[i]
		}
		rows.Scan(valuePtrs...)
		entry := make(map[string]interface{})
		for i, col := range columns {
			var v interface{}
			val := values[i]
			if b, ok := val.([]byte); ok {
				v = string(b)
			} else {
				v = val
			}
			entry[col] = v
		}
		tableData = append(tableData, entry)
	}

	jsonData, err := json.Marshal(tableData)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (s *Service) schemaDefinition() string {
	return `
	- users (id, role [buyer, seller, admin], name, email, phone, address)
	- products (id, seller_id, name, category, description, quantity, unit, price, status [available, sold])
	- negotiations (id, product_id, buyer_id, seller_id, original_price, proposed_price, counter_price, status [pending, countered, accepted, rejected], delivery_method, delivery_confirmed, delivery_counter_price, delivery_price_accepted)
	- payments (id, negotiation_id, company_sale_id, auction_id, buyer_id, seller_id, amount, commission, total_amount, seller_amount, status [pending, paid, delivering, received, completed, cancelled], admin_verified, reference_id)
	- company_sales (id, product_id, seller_id, status [pending, negotiating, approved, rejected, completed], negotiation_status, price_per_unit, admin_counter_price_per_unit, seller_counter_price_per_unit)
	- auctions (id, seller_id, product_name, starting_price, min_increment, status [pending, active, ended, rejected], current_bid, highest_bidder_id, end_time, winner_id)
	- bids (id, auction_id, bidder_id, amount, created_at)
	- base_prices (id, product_name, category, price, updated_at)
	- messages (id, payment_id, sender_id, message, is_read, created_at)
	- notifications (id, user_id, message, link, is_read, created_at)
	`
}
