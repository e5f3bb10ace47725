package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/DukeRupert/credits/internal/domain"
	"github.com/DukeRupert/credits/internal/id"
	"github.com/DukeRupert/credits/internal/repository"
)

func toDomainAccount(row repository.Account) domain.Account {
	acct := domain.Account{
		ID:                row.ID,
		Tier:              row.Tier,
		Balance:           row.Balance,
		OpeningBalance:    row.OpeningBalance,
		MonthlyUsageCount: int(row.MonthlyUsageCount),
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.UsageCounterAnchor.Valid {
		anchor := row.UsageCounterAnchor.Time.UTC()
		acct.UsageCounterAnchor = &anchor
	}
	return acct
}

func toDomainEntry(row repository.LedgerEntry) domain.LedgerEntry {
	entry := domain.LedgerEntry{
		ID:           row.ID,
		AccountID:    row.AccountID,
		Amount:       row.Amount,
		BalanceAfter: row.BalanceAfter,
		Reason:       domain.ReasonCode(row.ReasonCode),
		Description:  row.Description,
		CreatedAt:    row.CreatedAt,
	}
	if row.RelatedResourceType.Valid || row.RelatedResourceID.Valid {
		entry.Resource = &domain.ResourceRef{
			Type: row.RelatedResourceType.String,
			ID:   row.RelatedResourceID.String,
		}
	}
	if row.ActingAdminID.Valid {
		admin := row.ActingAdminID.UUID
		entry.ActingAdminID = &admin
	}
	if row.Metadata.Valid {
		entry.Metadata = json.RawMessage(row.Metadata.RawMessage)
	}
	return entry
}

func toCreateEntryParams(entry *domain.LedgerEntry) repository.CreateLedgerEntryParams {
	if entry.ID == "" {
		entry.ID = id.NewLedgerEntryID()
	}
	params := repository.CreateLedgerEntryParams{
		ID:           entry.ID,
		AccountID:    entry.AccountID,
		Amount:       entry.Amount,
		BalanceAfter: entry.BalanceAfter,
		ReasonCode:   string(entry.Reason),
		Description:  entry.Description,
	}
	if entry.Resource != nil {
		params.RelatedResourceType = sql.NullString{String: entry.Resource.Type, Valid: entry.Resource.Type != ""}
		params.RelatedResourceID = sql.NullString{String: entry.Resource.ID, Valid: entry.Resource.ID != ""}
	}
	if entry.ActingAdminID != nil {
		params.ActingAdminID = uuid.NullUUID{UUID: *entry.ActingAdminID, Valid: true}
	}
	if len(entry.Metadata) > 0 {
		params.Metadata = pqtype.NullRawMessage{RawMessage: entry.Metadata, Valid: true}
	}
	return params
}

func toDomainTier(row repository.TierDefinition) domain.TierDefinition {
	def := domain.TierDefinition{
		ID:              row.ID,
		Level:           int(row.Level),
		StartingBalance: row.StartingBalance,
	}
	if row.MaxManagedAccounts.Valid {
		def.MaxManagedAccounts = domain.IntPtr(int(row.MaxManagedAccounts.Int32))
	}
	if row.MonthlyAiCap.Valid {
		def.MonthlyAICap = domain.IntPtr(int(row.MonthlyAiCap.Int32))
	}
	return def
}

func toUpsertTierParams(def domain.TierDefinition) repository.UpsertTierDefinitionParams {
	return repository.UpsertTierDefinitionParams{
		ID:                 def.ID,
		Level:              int32(def.Level),
		StartingBalance:    def.StartingBalance,
		MaxManagedAccounts: nullInt32(def.MaxManagedAccounts),
		MonthlyAiCap:       nullInt32(def.MonthlyAICap),
	}
}

func toDomainActions(rows []repository.ActionCost) (domain.ActionTable, error) {
	actions := make([]domain.Action, 0, len(rows))
	for _, row := range rows {
		actions = append(actions, domain.Action{
			Reason:  domain.ReasonCode(row.ReasonCode),
			Cost:    row.Cost,
			MinTier: row.MinTier.String,
		})
	}
	return domain.NewActionTable(actions)
}

func toInsertActionParams(a domain.Action) repository.InsertActionCostParams {
	return repository.InsertActionCostParams{
		ReasonCode: string(a.Reason),
		Cost:       a.Cost,
		MinTier:    sql.NullString{String: a.MinTier, Valid: a.MinTier != ""},
	}
}

func nullInt32(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}
