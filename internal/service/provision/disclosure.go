package provision

import (
	"sync"

	"wallet-custody/pkg/bip39"
	"wallet-custody/pkg/errno"
)

// Disclosure 持有待展示的助记词，只能展示一次，确认或放弃时销毁
type Disclosure struct {
	mu       sync.Mutex
	mnemonic *bip39.Mnemonic
	revealed bool
}

func NewDisclosure(m *bip39.Mnemonic) *Disclosure {
	return &Disclosure{mnemonic: m}
}

// Reveal 返回助记词明文，第二次调用返回 ErrNoPendingDisclosure
func (d *Disclosure) Reveal() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revealed || d.mnemonic.Destroyed() {
		return "", errno.ErrNoPendingDisclosure
	}
	d.revealed = true
	return d.mnemonic.Phrase(), nil
}

// Revealed 是否已展示
func (d *Disclosure) Revealed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revealed
}

func (d *Disclosure) Destroy() {
	d.mnemonic.Destroy()
}

func (d *Disclosure) Destroyed() bool {
	return d.mnemonic.Destroyed()
}
