package mt5

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mzahran/scalpbot/internal/domain"
)

// GetBars returns up to count most recent bars for a symbol and timeframe.
// It returns (nil, nil) when the bridge has no data for the request, so a
// data gap reads as "no decision this cycle" rather than a failure.
func (c *Client) GetBars(ctx context.Context, symbol string, tf domain.Timeframe, count int) ([]domain.Bar, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("timeframe", string(tf))
	params.Set("count", strconv.Itoa(count))

	body, err := c.doGet(ctx, "/bars?"+params.Encode())
	if err != nil {
		var nd errNoData
		if errors.As(err, &nd) {
			return nil, nil
		}
		return nil, fmt.Errorf("mt5: get bars %s %s: %w", symbol, tf, err)
	}

	var apiBars []apiBar
	if err := json.Unmarshal(body, &apiBars); err != nil {
		return nil, fmt.Errorf("mt5: decode bars %s %s: %w", symbol, tf, err)
	}
	if len(apiBars) == 0 {
		return nil, nil
	}

	bars := make([]domain.Bar, 0, len(apiBars))
	for _, b := range apiBars {
		bars = append(bars, b.toDomain())
	}
	return bars, nil
}

// GetTick returns the latest quote for a symbol, or (nil, nil) when the
// bridge has none.
func (c *Client) GetTick(ctx context.Context, symbol string) (*domain.Tick, error) {
	body, err := c.doGet(ctx, "/tick?symbol="+url.QueryEscape(symbol))
	if err != nil {
		var nd errNoData
		if errors.As(err, &nd) {
			return nil, nil
		}
		return nil, fmt.Errorf("mt5: get tick %s: %w", symbol, err)
	}

	var t apiTick
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, fmt.Errorf("mt5: decode tick %s: %w", symbol, err)
	}

	tick := t.toDomain(symbol)
	return &tick, nil
}

// AccountSnapshot returns the current account state.
func (c *Client) AccountSnapshot(ctx context.Context) (*domain.AccountSnapshot, error) {
	body, err := c.doGet(ctx, "/account")
	if err != nil {
		return nil, fmt.Errorf("mt5: account snapshot: %w", err)
	}

	var acct apiAccount
	if err := json.Unmarshal(body, &acct); err != nil {
		return nil, fmt.Errorf("mt5: decode account: %w", err)
	}

	snapshot := acct.toDomain()
	return &snapshot, nil
}

// OpenPositions returns all open positions, filtered by symbol when one is
// given. A flat account returns an empty slice.
func (c *Client) OpenPositions(ctx context.Context, symbol string) ([]domain.Position, error) {
	path := "/positions"
	if symbol != "" {
		path += "?symbol=" + url.QueryEscape(symbol)
	}

	body, err := c.doGet(ctx, path)
	if err != nil {
		var nd errNoData
		if errors.As(err, &nd) {
			return []domain.Position{}, nil
		}
		return nil, fmt.Errorf("mt5: open positions: %w", err)
	}

	var apiPositions []apiPosition
	if err := json.Unmarshal(body, &apiPositions); err != nil {
		return nil, fmt.Errorf("mt5: decode positions: %w", err)
	}

	positions := make([]domain.Position, 0, len(apiPositions))
	for _, p := range apiPositions {
		positions = append(positions, p.toDomain())
	}
	return positions, nil
}

// InstrumentConstraints returns the broker's lot and tick limits for a
// symbol. Unknown symbols map to domain.ErrUnknownSymbol.
func (c *Client) InstrumentConstraints(ctx context.Context, symbol string) (*domain.InstrumentConstraints, error) {
	body, err := c.doGet(ctx, "/symbols/"+url.PathEscape(symbol))
	if err != nil {
		var nd errNoData
		if errors.As(err, &nd) {
			return nil, domain.ErrUnknownSymbol
		}
		return nil, fmt.Errorf("mt5: symbol info %s: %w", symbol, err)
	}

	var info apiSymbolInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("mt5: decode symbol info %s: %w", symbol, err)
	}

	constraints := info.toDomain()
	return &constraints, nil
}

// ValidateOrder runs the terminal's order check without sending, returning
// the retcode the terminal would answer with.
func (c *Client) ValidateOrder(ctx context.Context, req domain.OrderRequest) (domain.Retcode, error) {
	body, err := c.doPost(ctx, "/order/check", toAPIOrderRequest(req))
	if err != nil {
		return 0, fmt.Errorf("mt5: order check: %w", err)
	}

	var result apiOrderResult
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("mt5: decode order check: %w", err)
	}
	return domain.Retcode(result.Retcode), nil
}

// SubmitOrder sends a trade request to the terminal and returns its result.
func (c *Client) SubmitOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderResult, error) {
	body, err := c.doPost(ctx, "/order/send", toAPIOrderRequest(req))
	if err != nil {
		return nil, fmt.Errorf("mt5: order send: %w", err)
	}

	var apiResult apiOrderResult
	if err := json.Unmarshal(body, &apiResult); err != nil {
		return nil, fmt.Errorf("mt5: decode order result: %w", err)
	}

	result := apiResult.toDomain()
	return &result, nil
}

// Compile-time interface checks.
var (
	_ domain.MarketData    = (*Client)(nil)
	_ domain.BrokerGateway = (*Client)(nil)
)
