//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package evaluation

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-eval-go/tool"
)

//go:embed tasks/*.yaml
var taskFS embed.FS

// domainFixture is the YAML layout of one domain definition file.
type domainFixture struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Policy      string `yaml:"policy"`
	Tasks       []Task `yaml:"tasks"`
}

func init() {
	for _, def := range []struct {
		file     string
		decls    []tool.Declaration
		handlers map[string]Handler
	}{
		{"tasks/airline.yaml", airlineDecls(), airlineHandlers()},
		{"tasks/retail.yaml", retailDecls(), retailHandlers()},
		{"tasks/telecom.yaml", telecomDecls(), telecomHandlers()},
		{"tasks/mock.yaml", mockDecls(), mockHandlers()},
	} {
		domain, err := loadDomain(def.file, def.decls, def.handlers)
		if err != nil {
			panic(fmt.Sprintf("evaluation: loading %s: %v", def.file, err))
		}
		if err := RegisterDomain(domain); err != nil {
			panic(fmt.Sprintf("evaluation: registering %s: %v", domain.Name, err))
		}
	}
}

func loadDomain(file string, decls []tool.Declaration, handlers map[string]Handler) (*Domain, error) {
	data, err := taskFS.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var fixture domainFixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, err
	}
	return &Domain{
		Name:        fixture.Name,
		Description: fixture.Description,
		Policy:      fixture.Policy,
		Tasks:       fixture.Tasks,
		decls:       decls,
		handlers:    handlers,
	}, nil
}

// objectSchema builds an object schema from parameter name/type/description
// triples; every parameter is required.
func objectSchema(params ...[3]string) *tool.Schema {
	schema := &tool.Schema{Type: "object", Properties: map[string]*tool.Schema{}}
	for _, p := range params {
		schema.Properties[p[0]] = &tool.Schema{Type: p[1], Description: p[2]}
		schema.Required = append(schema.Required, p[0])
	}
	return schema
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, v)
	}
	return s, nil
}

func numberArg(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("argument %q must be a number, got %T", key, v)
	}
}

// entryByID finds the list entry whose "id" field equals id.
func entryByID(list []any, id string) (map[string]any, bool) {
	for _, raw := range list {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if entry["id"] == id {
			return entry, true
		}
	}
	return nil, false
}

func stateList(env *Environment, key string) []any {
	v, _ := env.State(key)
	list, _ := v.([]any)
	return list
}

// --- airline ---

func airlineDecls() []tool.Declaration {
	return []tool.Declaration{
		{
			Name:        "search_flights",
			Description: "Search available flights between two airports",
			InputSchema: objectSchema(
				[3]string{"origin", "string", "Origin airport code"},
				[3]string{"destination", "string", "Destination airport code"},
			),
		},
		{
			Name:        "book_flight",
			Description: "Book a flight for a passenger and create a reservation",
			InputSchema: objectSchema(
				[3]string{"flight_id", "string", "Flight identifier returned by search_flights"},
				[3]string{"passenger", "string", "Passenger full name"},
			),
		},
		{
			Name:        "get_reservation",
			Description: "Look up a reservation by its identifier",
			InputSchema: objectSchema(
				[3]string{"reservation_id", "string", "Reservation identifier"},
			),
		},
		{
			Name:        "cancel_reservation",
			Description: "Cancel an existing reservation",
			InputSchema: objectSchema(
				[3]string{"reservation_id", "string", "Reservation identifier"},
			),
		},
	}
}

func airlineHandlers() map[string]Handler {
	return map[string]Handler{
		"search_flights": func(env *Environment, args map[string]any) (any, error) {
			origin, err := stringArg(args, "origin")
			if err != nil {
				return nil, err
			}
			destination, err := stringArg(args, "destination")
			if err != nil {
				return nil, err
			}
			var matches []any
			for _, raw := range stateList(env, "flights") {
				flight, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				if flight["origin"] == origin && flight["destination"] == destination {
					matches = append(matches, flight)
				}
			}
			return map[string]any{"flights": matches}, nil
		},
		"book_flight": func(env *Environment, args map[string]any) (any, error) {
			flightID, err := stringArg(args, "flight_id")
			if err != nil {
				return nil, err
			}
			passenger, err := stringArg(args, "passenger")
			if err != nil {
				return nil, err
			}
			if _, ok := entryByID(stateList(env, "flights"), flightID); !ok {
				return nil, fmt.Errorf("flight %q not found", flightID)
			}
			reservations := stateList(env, "reservations")
			reservation := map[string]any{
				"id":        fmt.Sprintf("R%03d", len(reservations)+1),
				"flight_id": flightID,
				"passenger": passenger,
				"status":    "confirmed",
			}
			env.SetState("reservations", append(reservations, reservation))
			return reservation, nil
		},
		"get_reservation": func(env *Environment, args map[string]any) (any, error) {
			reservationID, err := stringArg(args, "reservation_id")
			if err != nil {
				return nil, err
			}
			reservation, ok := entryByID(stateList(env, "reservations"), reservationID)
			if !ok {
				return nil, fmt.Errorf("reservation %q not found", reservationID)
			}
			return reservation, nil
		},
		"cancel_reservation": func(env *Environment, args map[string]any) (any, error) {
			reservationID, err := stringArg(args, "reservation_id")
			if err != nil {
				return nil, err
			}
			reservation, ok := entryByID(stateList(env, "reservations"), reservationID)
			if !ok {
				return nil, fmt.Errorf("reservation %q not found", reservationID)
			}
			reservation["status"] = "cancelled"
			return reservation, nil
		},
	}
}

// --- retail ---

func retailDecls() []tool.Declaration {
	return []tool.Declaration{
		{
			Name:        "get_order",
			Description: "Look up an order by its identifier",
			InputSchema: objectSchema(
				[3]string{"order_id", "string", "Order identifier"},
			),
		},
		{
			Name:        "return_order",
			Description: "Start a return for a delivered order",
			InputSchema: objectSchema(
				[3]string{"order_id", "string", "Order identifier"},
				[3]string{"reason", "string", "Customer-stated return reason"},
			),
		},
		{
			Name:        "exchange_item",
			Description: "Exchange one item of a delivered order",
			InputSchema: objectSchema(
				[3]string{"order_id", "string", "Order identifier"},
				[3]string{"item_id", "string", "Item to exchange"},
			),
		},
	}
}

func retailHandlers() map[string]Handler {
	return map[string]Handler{
		"get_order": func(env *Environment, args map[string]any) (any, error) {
			orderID, err := stringArg(args, "order_id")
			if err != nil {
				return nil, err
			}
			order, ok := entryByID(stateList(env, "orders"), orderID)
			if !ok {
				return nil, fmt.Errorf("order %q not found", orderID)
			}
			return order, nil
		},
		"return_order": func(env *Environment, args map[string]any) (any, error) {
			orderID, err := stringArg(args, "order_id")
			if err != nil {
				return nil, err
			}
			reason, err := stringArg(args, "reason")
			if err != nil {
				return nil, err
			}
			order, ok := entryByID(stateList(env, "orders"), orderID)
			if !ok {
				return nil, fmt.Errorf("order %q not found", orderID)
			}
			if order["status"] != "delivered" {
				return nil, fmt.Errorf("order %q is not delivered, cannot return", orderID)
			}
			order["status"] = "return_initiated"
			order["return_reason"] = reason
			return order, nil
		},
		"exchange_item": func(env *Environment, args map[string]any) (any, error) {
			orderID, err := stringArg(args, "order_id")
			if err != nil {
				return nil, err
			}
			itemID, err := stringArg(args, "item_id")
			if err != nil {
				return nil, err
			}
			order, ok := entryByID(stateList(env, "orders"), orderID)
			if !ok {
				return nil, fmt.Errorf("order %q not found", orderID)
			}
			order["status"] = "exchange_initiated"
			order["exchange_item"] = itemID
			return order, nil
		},
	}
}

// --- telecom ---

func telecomDecls() []tool.Declaration {
	return []tool.Declaration{
		{
			Name:        "get_bill",
			Description: "Look up the current bill of an account",
			InputSchema: objectSchema(
				[3]string{"account_id", "string", "Account identifier"},
			),
		},
		{
			Name:        "pay_bill",
			Description: "Pay an amount towards the account balance",
			InputSchema: objectSchema(
				[3]string{"account_id", "string", "Account identifier"},
				[3]string{"amount", "number", "Payment amount"},
			),
		},
		{
			Name:        "reset_router",
			Description: "Trigger a remote router reset for an account",
			InputSchema: objectSchema(
				[3]string{"account_id", "string", "Account identifier"},
			),
		},
	}
}

func telecomHandlers() map[string]Handler {
	account := func(env *Environment, args map[string]any) (map[string]any, error) {
		accountID, err := stringArg(args, "account_id")
		if err != nil {
			return nil, err
		}
		acct, ok := entryByID(stateList(env, "accounts"), accountID)
		if !ok {
			return nil, fmt.Errorf("account %q not found", accountID)
		}
		return acct, nil
	}
	return map[string]Handler{
		"get_bill": func(env *Environment, args map[string]any) (any, error) {
			return account(env, args)
		},
		"pay_bill": func(env *Environment, args map[string]any) (any, error) {
			acct, err := account(env, args)
			if err != nil {
				return nil, err
			}
			amount, err := numberArg(args, "amount")
			if err != nil {
				return nil, err
			}
			balance, _ := acct["balance"].(float64)
			acct["balance"] = balance - amount
			return acct, nil
		},
		"reset_router": func(env *Environment, args map[string]any) (any, error) {
			acct, err := account(env, args)
			if err != nil {
				return nil, err
			}
			acct["router_status"] = "reset_initiated"
			return acct, nil
		},
	}
}

// --- mock ---

func mockDecls() []tool.Declaration {
	return []tool.Declaration{
		{
			Name:        "echo",
			Description: "Echo the given text back",
			InputSchema: objectSchema(
				[3]string{"text", "string", "Text to echo"},
			),
		},
		{
			Name:        "get_user",
			Description: "Look up a user record",
			InputSchema: objectSchema(
				[3]string{"user_id", "string", "User identifier"},
			),
		},
		{
			Name:        "update_email",
			Description: "Update the email address of a user",
			InputSchema: objectSchema(
				[3]string{"user_id", "string", "User identifier"},
				[3]string{"email", "string", "New email address"},
			),
		},
	}
}

func mockHandlers() map[string]Handler {
	user := func(env *Environment, args map[string]any) (map[string]any, error) {
		userID, err := stringArg(args, "user_id")
		if err != nil {
			return nil, err
		}
		u, ok := entryByID(stateList(env, "users"), userID)
		if !ok {
			return nil, fmt.Errorf("user %q not found", userID)
		}
		return u, nil
	}
	return map[string]Handler{
		"echo": func(env *Environment, args map[string]any) (any, error) {
			text, err := stringArg(args, "text")
			if err != nil {
				return nil, err
			}
			return text, nil
		},
		"get_user": func(env *Environment, args map[string]any) (any, error) {
			return user(env, args)
		},
		"update_email": func(env *Environment, args map[string]any) (any, error) {
			u, err := user(env, args)
			if err != nil {
				return nil, err
			}
			email, err := stringArg(args, "email")
			if err != nil {
				return nil, err
			}
			u["email"] = email
			return u, nil
		},
	}
}
