package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Budget periods
	r.HandleFunc("/api/period", deps.RolloverHandler.GetOrCreatePeriod).Methods("GET")
	r.HandleFunc("/api/period/{periodId}/capacity", deps.EnvelopeHandler.UpdatePeriodCapacity).Methods("PUT")
	r.HandleFunc("/api/period/{periodId}/envelope", deps.EnvelopeHandler.ListEnvelopes).Methods("GET")
	r.HandleFunc("/api/period/{periodId}/income", deps.TransactionHandler.RecordIncome).Methods("POST")
	r.HandleFunc("/api/period/{periodId}/fill", deps.TransactionHandler.FillEnvelopes).Methods("POST")

	// Envelopes
	r.HandleFunc("/api/envelope", deps.EnvelopeHandler.CreateEnvelope).Methods("POST")
	r.HandleFunc("/api/envelope/{envelopeId}", deps.SummaryHandler.GetEnvelopeDetails).Methods("GET")
	r.HandleFunc("/api/envelope/{envelopeId}", deps.EnvelopeHandler.UpdateEnvelope).Methods("PUT")
	r.HandleFunc("/api/envelope/{envelopeId}", deps.EnvelopeHandler.DeleteEnvelope).Methods("DELETE")

	// Transactions
	r.HandleFunc("/api/transaction", deps.TransactionHandler.RecordExpense).Methods("POST")
	r.HandleFunc("/api/transaction", deps.TransactionHandler.ListTransactions).Queries("domain", "{domain}").Methods("GET")
	r.HandleFunc("/api/transaction/{transactionId}", deps.TransactionHandler.UpdateTransaction).Methods("PUT")
	r.HandleFunc("/api/transaction/{transactionId}", deps.TransactionHandler.DeleteTransaction).Methods("DELETE")
	r.HandleFunc("/api/transfer", deps.TransactionHandler.Transfer).Methods("POST")

	// Summary
	r.HandleFunc("/api/summary", deps.SummaryHandler.GetSummary).Methods("GET")

	// User management
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/current", deps.UserHandler.UpdateSettings).Methods("PUT")
}
