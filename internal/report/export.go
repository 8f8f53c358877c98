// Package report renders management exports of already-committed ledger data.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"sikeu/internal/models"
)

const sheetName = "Transactions"

var exportHeader = []string{
	"Receipt Number", "Date", "Type", "Account", "Description",
	"Counterparty", "Payment Method", "Status", "Amount",
}

// TransactionWorkbook builds an XLSX workbook from a school's filtered
// transaction list. Amounts are written as exact decimal strings so the
// spreadsheet round-trips what the ledger stores.
func TransactionWorkbook(schoolName string, transactions []models.Transaction) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := f.SetCellValue(sheetName, "A1", schoolName); err != nil {
		return nil, err
	}
	for i, title := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 2)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, err
		}
	}

	for row, txn := range transactions {
		accountName := txn.Category
		if txn.CoaAccount != nil {
			accountName = txn.CoaAccount.Name
		}
		values := []interface{}{
			txn.ReceiptNumber,
			txn.Date.Format("2006-01-02"),
			string(txn.Type),
			accountName,
			txn.Description,
			txn.Counterparty,
			string(txn.PaymentMethod),
			string(txn.Status),
			txn.Amount.String(),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+3)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}
