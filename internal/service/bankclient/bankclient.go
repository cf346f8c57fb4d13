package bankclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// JSON ответ справочника банков крови
type Bank struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
	Address string `json:"address"`
}

var ErrUnavailable = errors.New("bank directory unavailable")

type BankClient interface {
	GetVerifiedBanks(ctx context.Context) ([]Bank, error)
}

type bankClient struct {
	serviceAddr string
	client      *resty.Client
}

func NewBankClient(serviceAddr string) BankClient {
	return bankClient{serviceAddr: serviceAddr, client: resty.New()}
}

func (client bankClient) GetVerifiedBanks(ctx context.Context) ([]Bank, error) {
	path := "/api/blood-banks/verified"

	setreq := client.client.R().SetContext(ctx)
	setreq.Method = http.MethodGet
	setreq.URL = client.serviceAddr + path
	setresp, err := setreq.Send()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	switch setresp.StatusCode() {
	case http.StatusOK:
		var banks []Bank
		if err = json.Unmarshal(setresp.Body(), &banks); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return banks, nil
	case http.StatusNoContent:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, setresp.StatusCode())
	}
}
