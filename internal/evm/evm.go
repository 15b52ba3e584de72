package evm

import (
	"math/big"

	"github.com/chenzhijie/go-web3"
	"github.com/ethereum/go-ethereum/common"
)

const erc20Abi = `[{"inputs":[{"internalType":"address","name":"account","type":"address"}],"name":"balanceOf","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"}]`

// Client wraps a JSON-RPC connection to a BSC node.
type Client struct {
	conn *web3.Web3
}

func New(providerUrl string) (*Client, error) {
	conn, err := web3.NewWeb3(providerUrl)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// GetBalance returns the native coin balance in wei.
func (c *Client) GetBalance(address string) (*big.Int, error) {
	return c.conn.Eth.GetBalance(common.HexToAddress(address), nil)
}

func (c *Client) GetGasPrice() (uint64, error) {
	return c.conn.Eth.GasPrice()
}

func (c *Client) GetBlockNumber() (uint64, error) {
	return c.conn.Eth.GetBlockNumber()
}

// TokenBalance reads an ERC20 balance via eth_call.
func (c *Client) TokenBalance(contractAddress string, holder string) (*big.Int, error) {
	contract, err := c.conn.Eth.NewContract(erc20Abi, contractAddress)
	if err != nil {
		return nil, err
	}
	raw, err := contract.Call("balanceOf", common.HexToAddress(holder))
	if err != nil {
		return nil, err
	}
	balance, ok := raw.(*big.Int)
	if !ok {
		balance = new(big.Int)
	}
	return balance, nil
}

func IsValidAddress(address string) bool {
	return common.IsHexAddress(address)
}
