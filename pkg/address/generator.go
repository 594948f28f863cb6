package address

// Generator 将公钥编码为链上地址，并校验地址格式
type Generator interface {
	PubKeyToAddress(pubKeyBytes []byte) (string, error)
	Validate(addr string) bool
}
