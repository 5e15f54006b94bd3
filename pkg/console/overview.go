package console

import (
	"context"
	"errors"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/shopsphere/shopctl/pkg/api"
)

// Overview sources.
const (
	SourceDashboard = "dashboard"
	SourceWallet    = "wallet"
)

// Overview joins the landing-page counts with the admin wallet.
type Overview struct {
	Dashboard api.Record
	Wallet    api.Record
	// Errors holds the failure of each source that could not be loaded.
	// The matching field then holds an empty record.
	Errors map[string]error
}

// Balance returns the wallet balance, 0 when unknown.
func (o *Overview) Balance() float64 {
	return o.Wallet.Float("balance")
}

// Counts returns the numeric dashboard fields, sorted by name.
func (o *Overview) Counts() []Count {
	var out []Count
	for k, v := range o.Dashboard {
		if f, ok := v.(float64); ok {
			out = append(out, Count{Name: k, Value: f})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count is one named dashboard figure.
type Count struct {
	Name  string  `json:"name" yaml:"name"`
	Value float64 `json:"value" yaml:"value"`
}

// Overview loads the dashboard and wallet concurrently. A failed source
// is reported in Overview.Errors; an error is returned only when every
// source failed.
func (c *Console) Overview(ctx context.Context) (*Overview, error) {
	ov := &Overview{Dashboard: api.Record{}, Wallet: api.Record{}, Errors: map[string]error{}}
	var g errgroup.Group
	var dashErr, walletErr error
	g.Go(func() error {
		rec, err := c.API.Dashboard(ctx)
		if err != nil {
			dashErr = err
			return nil
		}
		ov.Dashboard = rec
		return nil
	})
	g.Go(func() error {
		rec, err := c.API.WalletBalance(ctx)
		if err != nil {
			walletErr = err
			return nil
		}
		ov.Wallet = rec
		return nil
	})
	g.Wait()

	if dashErr != nil {
		ov.Errors[SourceDashboard] = dashErr
	}
	if walletErr != nil {
		ov.Errors[SourceWallet] = walletErr
	}
	if dashErr != nil && walletErr != nil {
		return ov, errors.Join(dashErr, walletErr)
	}
	return ov, nil
}
