package main

import "github.com/yuoguoxianseng/hbase/identity"

// identityFlag wraps a CLI-provided identity token, built from the raw
// bytes of the --identity flag. It exists only so runCall has a named type
// to branch on when the flag was left empty.
type identityFlag struct {
	token *identity.Token
}

func newIdentityFlag(raw string) *identityFlag {
	return &identityFlag{token: identity.New([]byte(raw))}
}
