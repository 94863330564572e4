// internal/raydium/mints.go
package raydium

import (
	"github.com/gagliardetto/solana-go"
)

// mintExtractor пытается достать пару mint-адресов из сырого объекта
// одной из известных схем именования полей.
type mintExtractor struct {
	name    string
	extract func(raw map[string]interface{}) (base, quote string, ok bool)
}

// mintExtractors перебираются по порядку до первого успеха.
// Порядок фиксирован: сначала плоский camelCase (основной формат
// Raydium pairs), затем snake_case, затем вложенные объекты токенов
// (формат DexScreener), затем mintA/mintB (Raydium v3).
var mintExtractors = []mintExtractor{
	{
		name: "flat-camel",
		extract: func(raw map[string]interface{}) (string, string, bool) {
			base, okB := asString(raw["baseMint"])
			quote, okQ := asString(raw["quoteMint"])
			return base, quote, okB && okQ
		},
	},
	{
		name: "flat-snake",
		extract: func(raw map[string]interface{}) (string, string, bool) {
			base, okB := asString(raw["base_mint"])
			quote, okQ := asString(raw["quote_mint"])
			return base, quote, okB && okQ
		},
	},
	{
		name: "nested-token",
		extract: func(raw map[string]interface{}) (string, string, bool) {
			base, okB := nestedAddress(raw, "baseToken")
			quote, okQ := nestedAddress(raw, "quoteToken")
			return base, quote, okB && okQ
		},
	},
	{
		name: "mint-ab",
		extract: func(raw map[string]interface{}) (string, string, bool) {
			base, okB := asString(raw["mintA"])
			quote, okQ := asString(raw["mintB"])
			return base, quote, okB && okQ
		},
	},
}

func nestedAddress(raw map[string]interface{}, key string) (string, bool) {
	obj, ok := raw[key].(map[string]interface{})
	if !ok {
		return "", false
	}
	if mint, ok := asString(obj["mint"]); ok {
		return mint, true
	}
	if addr, ok := asString(obj["address"]); ok {
		return addr, true
	}
	return "", false
}

// ExtractMints возвращает пару mint-адресов сырого пула или ok=false,
// если ни одна из схем не подошла.
func ExtractMints(raw map[string]interface{}) (base, quote string, ok bool) {
	for _, ex := range mintExtractors {
		if base, quote, ok = ex.extract(raw); ok {
			return base, quote, true
		}
	}
	return "", "", false
}

// isCanonicalSol проверяет точное совпадение адреса с одним из
// канонических SOL-адресов. Строка сначала декодируется из base58:
// усеченный или удлиненный вариант дает другой (или невалидный) ключ
// и никогда не совпадет. Сравнения по префиксу/подстроке запрещены.
func isCanonicalSol(addr string) bool {
	if addr != WrappedSolMint && addr != SystemProgramID {
		return false
	}
	key, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return false
	}
	return key.Equals(solana.SolMint) || key.Equals(solana.SystemProgramID)
}

// IsSolPair сообщает, является ли сырой объект SOL-парой: ровно одна
// из распознанных сторон должна быть каноническим SOL-адресом.
func IsSolPair(raw map[string]interface{}) bool {
	base, quote, ok := ExtractMints(raw)
	if !ok {
		return false
	}
	return isCanonicalSol(base) != isCanonicalSol(quote)
}
