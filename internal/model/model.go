// Package model holds the gorm models of the trading network.
package model

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{&Participant{}, &Product{}, &User{}}
}
