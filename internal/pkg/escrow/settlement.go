package escrow

import (
	"fmt"

	"github.com/labstack/gommon/log"
	"github.com/vreid/escrow/internal/pkg/ledger"
)

// RecordResult settles an in-progress battle. Only the declared winner may
// report, and the fee is taken from the combined pool before payout.
//
//nolint:cyclop,funlen
func (s *EscrowService) RecordResult(
	caller ledger.Identity,
	playerOne ledger.Identity,
	battleID uint64,
	result Result,
) (Outcome, error) {
	var outcome Outcome

	err := s.update(func(txn *Txn) error {
		battle, err := txn.Battle(s.BattleAddress(playerOne, battleID))
		if err != nil {
			return err
		}

		switch battle.Status {
		case StatusInProgress:
		case StatusPending, StatusCompleted:
			return fmt.Errorf("%w: cannot record a result for a %s battle", ErrInvalidBattleStatus, battle.Status)
		}

		if battle.BattleID != battleID {
			return fmt.Errorf("%w: %d != %d", ErrInvalidBattleID, battleID, battle.BattleID)
		}

		winner, err := declaredWinner(battle, result)
		if err != nil {
			return err
		}

		if caller != winner {
			return fmt.Errorf("%w: %s cannot report a win for %s", ErrUnauthorized, caller, winner)
		}

		config, err := txn.Config()
		if err != nil {
			return err
		}

		escrow, err := txn.Book.Account(battle.Escrow)
		if err != nil {
			return fmt.Errorf("%w: escrow: %w", ErrInternal, err)
		}

		split, err := SettlementSplit(config.FeeBps, battle.Stake, escrow.Balance)
		if err != nil {
			return err
		}

		battle.Status = StatusCompleted
		battle.Winner = winner

		receipt, err := NewReceipt(ReceiptSettlement, battle, s.now())
		if err != nil {
			return err
		}

		receipt.Pool = split.Pool
		receipt.Fee = split.Fee

		_, err = s.payout(txn, &receipt, battle, RoleWinner, winner, split.Winner)
		if err != nil {
			return err
		}

		feeAccount, err := s.payout(txn, &receipt, battle, RoleFee, config.Admin, split.Fee)
		if err != nil {
			return err
		}

		err = s.closeEscrow(txn, battle, feeAccount)
		if err != nil {
			return err
		}

		outcome, err = s.finish(txn, battle, receipt)

		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	s.Logger.Infoj(log.JSON{"op": "record_result", "battle_id": battleID, "player_one": playerOne,
		"winner": outcome.Battle.Winner, "pool": outcome.Receipt.Pool, "fee": outcome.Receipt.Fee,
		"receipt": outcome.Receipt.ID})
	s.emit(Event{Kind: EventBattleSettled, Battle: &outcome.Battle, Receipt: &outcome.Receipt})

	return outcome, nil
}

func declaredWinner(battle Battle, result Result) (ledger.Identity, error) {
	switch result {
	case ResultPlayerOne:
		return battle.PlayerOne, nil
	case ResultPlayerTwo:
		return battle.PlayerTwo, nil
	}

	return "", fmt.Errorf("%w: %d", ErrInvalidBattleResult, result)
}

// AdminWithdraw splits whatever the escrow holds evenly between the players
// and destroys the battle, whether or not an opponent has joined. An odd
// unit left over by the halving goes to the admin's account.
//
//nolint:cyclop,funlen
func (s *EscrowService) AdminWithdraw(
	caller ledger.Identity,
	playerOne ledger.Identity,
	battleID uint64,
	playerTwo ledger.Identity,
) (Outcome, error) {
	var outcome Outcome

	err := s.update(func(txn *Txn) error {
		config, err := txn.Config()
		if err != nil {
			return err
		}

		if caller != config.Admin {
			return fmt.Errorf("%w: %s is not the admin", ErrUnauthorized, caller)
		}

		battle, err := txn.Battle(s.BattleAddress(playerOne, battleID))
		if err != nil {
			return err
		}

		if battle.BattleID != battleID {
			return fmt.Errorf("%w: %d != %d", ErrInvalidBattleID, battleID, battle.BattleID)
		}

		switch battle.Status {
		case StatusPending, StatusInProgress:
		case StatusCompleted:
			return fmt.Errorf("%w: battle %d is already settled", ErrInvalidBattleStatus, battleID)
		}

		if playerTwo == "" {
			return fmt.Errorf("%w: player two is required", ErrInvalidParticipant)
		}

		if battle.PlayerTwo != "" && battle.PlayerTwo != playerTwo {
			return fmt.Errorf("%w: %s is not player two of battle %d", ErrInvalidWithdrawal, playerTwo, battleID)
		}

		battle.PlayerTwo = playerTwo

		escrow, err := txn.Book.Account(battle.Escrow)
		if err != nil {
			return fmt.Errorf("%w: escrow: %w", ErrInternal, err)
		}

		receipt, err := NewReceipt(ReceiptAdminWithdrawal, battle, s.now())
		if err != nil {
			return err
		}

		receipt.Pool = escrow.Balance
		half, remainder := Halve(escrow.Balance)

		_, err = s.payout(txn, &receipt, battle, RoleSplit, battle.PlayerOne, half)
		if err != nil {
			return err
		}

		_, err = s.payout(txn, &receipt, battle, RoleSplit, playerTwo, half)
		if err != nil {
			return err
		}

		adminAccount, err := txn.Book.EnsureFundingAccount(config.Admin, battle.ValueUnit)
		if err != nil {
			return fmt.Errorf("%w: admin account: %w", ErrInternal, err)
		}

		if remainder > 0 {
			_, err = s.payout(txn, &receipt, battle, RoleRemainder, config.Admin, remainder)
			if err != nil {
				return err
			}
		}

		err = s.closeEscrow(txn, battle, adminAccount)
		if err != nil {
			return err
		}

		outcome, err = s.finish(txn, battle, receipt)

		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	s.Logger.Infoj(log.JSON{"op": "admin_withdraw", "battle_id": battleID, "player_one": playerOne,
		"player_two": playerTwo, "pool": outcome.Receipt.Pool, "receipt": outcome.Receipt.ID})
	s.emit(Event{Kind: EventBattleWithdrawn, Battle: &outcome.Battle, Receipt: &outcome.Receipt})

	return outcome, nil
}
