//go:build keydebug

package keyswitch

const strictBounds = true
