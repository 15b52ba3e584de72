package oracle

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/spyzhov/ajson"
)

const (
	coingeckoBase = "https://api.coingecko.com/api/v3"
	pancakeBase   = "https://api.pancakeswap.info/api/v2"
	etherscanBase = "https://api.etherscan.io/api"
)

var (
	ErrPriceNotFound   = errors.New("price not found")
	ErrScanUnavailable = errors.New("scan api unavailable")
)

// Client talks to the public price and explorer APIs.
type Client struct {
	http *resty.Client
}

func New() *Client {
	return &Client{
		http: resty.New().
			SetTimeout(15 * time.Second).
			SetRetryCount(2),
	}
}

// CoinGeckoId resolves a ticker symbol to a coingecko coin id.
func (c *Client) CoinGeckoId(symbol string) (string, error) {
	resp, err := c.http.R().Get(coingeckoBase + "/coins/list")
	if err != nil {
		return "", err
	}
	root, err := ajson.Unmarshal(resp.Body())
	if err != nil {
		return "", err
	}
	nodes, err := root.JSONPath(fmt.Sprintf(`$[?(@.symbol == '%s')].id`, strings.ToLower(symbol)))
	if err != nil || len(nodes) == 0 {
		return "", ErrPriceNotFound
	}
	return nodes[0].MustString(), nil
}

// CoinGeckoPrice returns the usd price of a coingecko coin id.
func (c *Client) CoinGeckoPrice(coinId string) (decimal.Decimal, error) {
	resp, err := c.http.R().
		SetQueryParam("ids", coinId).
		SetQueryParam("vs_currencies", "usd").
		Get(coingeckoBase + "/simple/price")
	if err != nil {
		return decimal.Zero, err
	}
	root, err := ajson.Unmarshal(resp.Body())
	if err != nil {
		return decimal.Zero, err
	}
	nodes, err := root.JSONPath(fmt.Sprintf(`$['%s'].usd`, coinId))
	if err != nil || len(nodes) == 0 {
		return decimal.Zero, ErrPriceNotFound
	}
	return decimal.NewFromFloat(nodes[0].MustNumeric()), nil
}

// PancakePrice looks a token up on the pancakeswap token list by its
// ticker. Fallback for coins coingecko does not carry.
func (c *Client) PancakePrice(symbol string) (decimal.Decimal, error) {
	resp, err := c.http.R().Get(pancakeBase + "/tokens")
	if err != nil {
		return decimal.Zero, err
	}
	root, err := ajson.Unmarshal(resp.Body())
	if err != nil {
		return decimal.Zero, err
	}
	nodes, err := root.JSONPath(fmt.Sprintf(`$.data..[?(@.symbol == '%s')].price`, strings.ToUpper(symbol)))
	if err != nil || len(nodes) == 0 {
		return decimal.Zero, ErrPriceNotFound
	}
	price, err := decimal.NewFromString(nodes[0].MustString())
	if err != nil {
		return decimal.Zero, err
	}
	return price, nil
}

// TokenBalance reads an ERC20 holding through the etherscan account
// api. The result comes back as a raw integer string in token units.
func (c *Client) TokenBalance(contractAddress string, holderAddress string) (string, error) {
	resp, err := c.http.R().
		SetQueryParams(map[string]string{
			"module":          "account",
			"action":          "tokenbalance",
			"contractaddress": contractAddress,
			"address":         holderAddress,
			"tag":             "latest",
			"apikey":          os.Getenv("ETHERSCAN_API_KEY"),
		}).
		Get(etherscanBase)
	if err != nil {
		return "", err
	}
	root, err := ajson.Unmarshal(resp.Body())
	if err != nil {
		return "", err
	}
	messageNodes, err := root.JSONPath(`$.message`)
	if err != nil || len(messageNodes) == 0 || messageNodes[0].MustString() != "OK" {
		return "", ErrScanUnavailable
	}
	resultNodes, err := root.JSONPath(`$.result`)
	if err != nil || len(resultNodes) == 0 {
		return "", ErrScanUnavailable
	}
	return resultNodes[0].MustString(), nil
}
