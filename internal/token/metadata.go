package token

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Function selectors used for metadata and balance reads.
const (
	selName             = "0x06fdde03" // name()
	selSymbol           = "0x95d89b41" // symbol()
	selDecimals         = "0x313ce567" // decimals()
	selBalanceOf        = "0x70a08231" // balanceOf(address)
	selAllowance        = "0xdd62ed3e" // allowance(address,address)
	selIsApprovedForAll = "0xe985e9c5" // isApprovedForAll(address,address)
)

// Dummy addresses for the call-based standard probes. Probing the allowance
// from 0x..01 to 0x..02 must yield zero/false on a conforming contract.
var (
	dummyAddress  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	dummyAddress2 = common.HexToAddress("0x0000000000000000000000000000000000000002")
)

// Reader is the read-only chain access the token package needs. The JSON-RPC
// EVM client satisfies it.
type Reader interface {
	CallContract(ctx context.Context, toAddr, calldata string) (string, error)
	GetCode(ctx context.Context, address string) (string, error)
}

// Metadata holds the display attributes of a token contract.
type Metadata struct {
	Symbol   string
	Decimals int
}

// ErrSpamToken marks contracts excluded by the spam heuristics.
type ErrSpamToken struct {
	Contract common.Address
	Reason   string
}

func (e ErrSpamToken) Error() string {
	return fmt.Sprintf("token %s marked as spam: %s", e.Contract.Hex(), e.Reason)
}

var spamSymbolRegexes = []*regexp.Regexp{
	// Includes http(s)://
	regexp.MustCompile(`(?i)https?://`),
	// Includes a TLD. Not exhaustive; extend as new spam shows up.
	regexp.MustCompile(`(?i)\.com|\.io|\.xyz|\.org|\.me|\.site|\.net|\.fi|\.vision|\.team|\.app|\.exchange|\.cash|\.finance|\.cc|\.cloud|\.fun|\.wtf|\.game|\.games|\.city|\.claims|\.family|\.events|\.to|\.us|\.vip|\.ly|\.lol|\.biz|\.life|\.pm`),
	// Includes "www."
	regexp.MustCompile(`(?i)www\.`),
	// Common airdrop-bait phrases.
	regexp.MustCompile(`(?i)visit .+ claim|free claim|claim on|airdrop at|airdrop voucher`),
}

// IsSpamSymbol reports whether a token symbol matches the spam heuristics
// (embedded URLs, TLDs, airdrop-bait marketing phrases).
func IsSpamSymbol(symbol string) bool {
	for _, re := range spamSymbolRegexes {
		if re.MatchString(symbol) {
			return true
		}
	}
	return false
}

// FetchMetadata reads symbol and decimals for a contract of the given
// standard, applying the spam heuristics. ERC721 contracts report their
// name() as the symbol and zero decimals; a missing symbol falls back to the
// contract address.
func FetchMetadata(ctx context.Context, r Reader, addr common.Address, std Standard) (Metadata, error) {
	if std == StandardERC721 {
		if err := checkSpamBytecode(ctx, r, addr); err != nil {
			return Metadata{}, err
		}
		symbol, err := callString(ctx, r, addr, selName)
		if err != nil || symbol == "" {
			symbol = addr.Hex()
		}
		if IsSpamSymbol(symbol) {
			return Metadata{}, ErrSpamToken{Contract: addr, Reason: "symbol"}
		}
		return Metadata{Symbol: symbol, Decimals: 0}, nil
	}

	symbol, err := callString(ctx, r, addr, selSymbol)
	if err != nil || symbol == "" {
		symbol = addr.Hex()
	}
	if IsSpamSymbol(symbol) {
		return Metadata{}, ErrSpamToken{Contract: addr, Reason: "symbol"}
	}

	decimals := 18
	if raw, err := r.CallContract(ctx, addr.Hex(), selDecimals); err == nil {
		if d, ok := new(big.Int).SetString(strings.TrimPrefix(raw, "0x"), 16); ok && d.IsInt64() {
			decimals = int(d.Int64())
		}
	} else {
		return Metadata{}, fmt.Errorf("reading decimals for %s: %w", addr.Hex(), err)
	}

	return Metadata{Symbol: symbol, Decimals: decimals}, nil
}

// BalanceOf reads the current token balance of owner.
func BalanceOf(ctx context.Context, r Reader, tokenAddr, owner common.Address) (*big.Int, error) {
	calldata := selBalanceOf + encodeAddressWord(owner)
	raw, err := r.CallContract(ctx, tokenAddr.Hex(), calldata)
	if err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(strings.TrimPrefix(raw, "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("could not parse balance: %s", raw)
	}
	return n, nil
}

// ProbeERC20 is the call-based fallback for ambiguous log shapes: a
// conforming ERC20 answers allowance(0x..01, 0x..02) with exactly zero.
// A non-zero answer means a fallback function swallowed the call.
func ProbeERC20(ctx context.Context, r Reader, addr common.Address) error {
	calldata := selAllowance + encodeAddressWord(dummyAddress) + encodeAddressWord(dummyAddress2)
	raw, err := r.CallContract(ctx, addr.Hex(), calldata)
	if err != nil {
		return fmt.Errorf("allowance probe: %w", err)
	}
	n, ok := new(big.Int).SetString(strings.TrimPrefix(raw, "0x"), 16)
	if !ok || n.Sign() != 0 {
		return fmt.Errorf("allowance probe returned %s, not an ERC20 contract", raw)
	}
	return nil
}

// ProbeERC721 mirrors ProbeERC20 for NFT contracts: isApprovedForAll between
// the dummy addresses must be false.
func ProbeERC721(ctx context.Context, r Reader, addr common.Address) error {
	calldata := selIsApprovedForAll + encodeAddressWord(dummyAddress) + encodeAddressWord(dummyAddress2)
	raw, err := r.CallContract(ctx, addr.Hex(), calldata)
	if err != nil {
		return fmt.Errorf("isApprovedForAll probe: %w", err)
	}
	n, ok := new(big.Int).SetString(strings.TrimPrefix(raw, "0x"), 16)
	if !ok || n.Sign() != 0 {
		return fmt.Errorf("isApprovedForAll probe returned %s, not an ERC721 contract", raw)
	}
	return nil
}

// checkSpamBytecode rejects contracts with suspiciously tiny bytecode —
// a pattern common to throwaway spam NFTs. Minimal proxies (EIP-1167, which
// end in the DELEGATECALL-return tail 57fd5bf3) are exempt.
func checkSpamBytecode(ctx context.Context, r Reader, addr common.Address) error {
	code, err := r.GetCode(ctx, addr.Hex())
	if err != nil {
		return fmt.Errorf("reading bytecode for %s: %w", addr.Hex(), err)
	}
	if len(code) < 250 {
		if len(code) < 100 && strings.HasSuffix(code, "57fd5bf3") {
			return nil
		}
		return ErrSpamToken{Contract: addr, Reason: "bytecode"}
	}
	return nil
}

// callString calls a no-arg function returning a single ABI string.
func callString(ctx context.Context, r Reader, addr common.Address, selector string) (string, error) {
	raw, err := r.CallContract(ctx, addr.Hex(), selector)
	if err != nil {
		return "", err
	}
	return decodeStringResult(raw)
}

// decodeStringResult decodes a single dynamically-encoded string return value
// (offset word, length word, then the bytes).
func decodeStringResult(hexData string) (string, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(hexData, "0x"))
	if err != nil {
		return "", fmt.Errorf("decoding hex result: %w", err)
	}
	if len(data) < 64 {
		return "", fmt.Errorf("result too short for a string: %d bytes", len(data))
	}
	offset := new(big.Int).SetBytes(data[:32]).Uint64()
	if offset+32 > uint64(len(data)) {
		return "", fmt.Errorf("string offset out of range")
	}
	length := new(big.Int).SetBytes(data[offset : offset+32]).Uint64()
	start := offset + 32
	if start+length > uint64(len(data)) {
		return "", fmt.Errorf("string length out of range")
	}
	return string(data[start : start+length]), nil
}

// encodeAddressWord left-pads an address into a 32-byte hex word (no 0x).
func encodeAddressWord(addr common.Address) string {
	word := make([]byte, 32)
	copy(word[12:], addr.Bytes())
	return hex.EncodeToString(word)
}
