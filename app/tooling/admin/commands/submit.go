package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ardanlabs/minichain/business/web/errs"
	"github.com/ardanlabs/minichain/foundation/blockchain/database"
)

// Submitted is the node's reply to a successful submission.
type Submitted struct {
	Status  string `json:"status"`
	Pending int    `json:"pending"`
}

// ParseTxns converts transactions written as JSON objects of account deltas,
// such as {"Alice":-3,"Bob":3}, into transactions.
func ParseTxns(raw []string) ([]database.Tx, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("no transactions provided")
	}

	trans := make([]database.Tx, len(raw))
	for i, s := range raw {
		var deltas map[string]int64
		if err := json.Unmarshal([]byte(s), &deltas); err != nil {
			return nil, fmt.Errorf("tx[%d] %q: %w", i, s, err)
		}

		tx, err := database.NewTx(deltas)
		if err != nil {
			return nil, fmt.Errorf("tx[%d] %q: %w", i, s, err)
		}
		trans[i] = tx
	}

	return trans, nil
}

// Submit posts the transactions to the node at the url.
func Submit(ctx context.Context, client *http.Client, url string, trans []database.Tx) (Submitted, error) {
	req := struct {
		Txns []database.Tx `json:"txns"`
	}{
		Txns: trans,
	}

	data, err := json.Marshal(req)
	if err != nil {
		return Submitted{}, err
	}

	endpoint := fmt.Sprintf("%s/v1/tx/submit", strings.TrimSuffix(url, "/"))
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return Submitted{}, err
	}
	r.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(r)
	if err != nil {
		return Submitted{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var er errs.Response
		if err := json.NewDecoder(resp.Body).Decode(&er); err != nil || er.Error == "" {
			return Submitted{}, fmt.Errorf("node responded %s", resp.Status)
		}
		return Submitted{}, fmt.Errorf("node responded %s: %s", resp.Status, er.Error)
	}

	var sub Submitted
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return Submitted{}, fmt.Errorf("decoding response: %w", err)
	}

	return sub, nil
}
