package escrow

import (
	"fmt"

	"github.com/labstack/gommon/log"
	"github.com/vreid/escrow/internal/pkg/ledger"
)

func (s *EscrowService) Create(playerOne ledger.Identity, battleID uint64) (Battle, error) {
	var battle Battle

	err := s.update(func(txn *Txn) error {
		if playerOne == "" {
			return fmt.Errorf("%w: player one is required", ErrInvalidParticipant)
		}

		config, err := txn.Config()
		if err != nil {
			return err
		}

		address := s.BattleAddress(playerOne, battleID)
		if txn.HasBattle(address) {
			return fmt.Errorf("%w: battle %d already exists for %s", ErrInternal, battleID, playerOne)
		}

		escrow := s.EscrowAddress(playerOne, battleID)

		_, err = txn.Book.OpenAccount(escrow, config.ValueUnit, ledger.Identity(escrow))
		if err != nil {
			return fmt.Errorf("%w: failed to open escrow: %w", ErrInternal, err)
		}

		err = txn.Book.Transfer(ledger.FundingAccount(playerOne, config.ValueUnit), escrow, config.StakePrice)
		if err != nil {
			return fmt.Errorf("failed to stake player one: %w", err)
		}

		battle = Battle{
			BattleID:  battleID,
			PlayerOne: playerOne,
			Status:    StatusPending,
			ValueUnit: config.ValueUnit,
			Stake:     config.StakePrice,
			Address:   address,
			Escrow:    escrow,
		}

		return txn.PutBattle(battle)
	})
	if err != nil {
		return Battle{}, err
	}

	s.Logger.Infoj(log.JSON{"op": "create", "battle_id": battleID, "player_one": playerOne, "stake": battle.Stake})
	s.emit(Event{Kind: EventBattleCreated, Battle: &battle})

	return battle, nil
}

func (s *EscrowService) Join(playerOne ledger.Identity, battleID uint64, playerTwo ledger.Identity) (Battle, error) {
	var battle Battle

	err := s.update(func(txn *Txn) error {
		var err error

		battle, err = txn.Battle(s.BattleAddress(playerOne, battleID))
		if err != nil {
			return err
		}

		switch battle.Status {
		case StatusPending:
		case StatusInProgress, StatusCompleted:
			return fmt.Errorf("%w: cannot join a %s battle", ErrInvalidBattleStatus, battle.Status)
		}

		if battle.BattleID != battleID {
			return fmt.Errorf("%w: %d != %d", ErrInvalidBattleID, battleID, battle.BattleID)
		}

		if playerTwo == "" || playerTwo == battle.PlayerOne {
			return fmt.Errorf("%w: %q cannot join battle %d", ErrInvalidParticipant, playerTwo, battleID)
		}

		err = txn.Book.Transfer(ledger.FundingAccount(playerTwo, battle.ValueUnit), battle.Escrow, battle.Stake)
		if err != nil {
			return fmt.Errorf("failed to stake player two: %w", err)
		}

		battle.PlayerTwo = playerTwo
		battle.Status = StatusInProgress

		return txn.PutBattle(battle)
	})
	if err != nil {
		return Battle{}, err
	}

	s.Logger.Infoj(log.JSON{"op": "join", "battle_id": battleID, "player_one": playerOne, "player_two": playerTwo})
	s.emit(Event{Kind: EventBattleJoined, Battle: &battle})

	return battle, nil
}

// Withdraw refunds player one while nobody has joined.
func (s *EscrowService) Withdraw(caller ledger.Identity, playerOne ledger.Identity, battleID uint64) (Outcome, error) {
	var outcome Outcome

	err := s.update(func(txn *Txn) error {
		battle, err := txn.Battle(s.BattleAddress(playerOne, battleID))
		if err != nil {
			return err
		}

		switch battle.Status {
		case StatusPending:
		case StatusInProgress, StatusCompleted:
			return fmt.Errorf("%w: cannot withdraw from a %s battle", ErrInvalidBattleStatus, battle.Status)
		}

		if battle.BattleID != battleID {
			return fmt.Errorf("%w: %d != %d", ErrInvalidBattleID, battleID, battle.BattleID)
		}

		if caller != battle.PlayerOne {
			return fmt.Errorf("%w: %s does not own battle %d", ErrInvalidWithdrawal, caller, battleID)
		}

		receipt, err := NewReceipt(ReceiptRefund, battle, s.now())
		if err != nil {
			return err
		}

		escrow, err := txn.Book.Account(battle.Escrow)
		if err != nil {
			return fmt.Errorf("%w: escrow: %w", ErrInternal, err)
		}

		receipt.Pool = escrow.Balance

		refundAccount, err := s.payout(txn, &receipt, battle, RoleRefund, battle.PlayerOne, escrow.Balance)
		if err != nil {
			return err
		}

		err = s.closeEscrow(txn, battle, refundAccount)
		if err != nil {
			return err
		}

		outcome, err = s.finish(txn, battle, receipt)

		return err
	})
	if err != nil {
		return Outcome{}, err
	}

	s.Logger.Infoj(log.JSON{"op": "withdraw", "battle_id": battleID, "player_one": playerOne,
		"refund": outcome.Receipt.Pool, "receipt": outcome.Receipt.ID})
	s.emit(Event{Kind: EventBattleRefunded, Battle: &outcome.Battle, Receipt: &outcome.Receipt})

	return outcome, nil
}

func (s *EscrowService) payout(
	txn *Txn,
	receipt *Receipt,
	battle Battle,
	role PayoutRole,
	recipient ledger.Identity,
	amount uint64,
) (ledger.AccountID, error) {
	account, err := txn.Book.EnsureFundingAccount(recipient, battle.ValueUnit)
	if err != nil {
		return "", fmt.Errorf("%w: %s account for %s: %w", ErrInternal, role, recipient, err)
	}

	err = txn.Book.Transfer(battle.Escrow, account, amount)
	if err != nil {
		return "", fmt.Errorf("%w: %s payout to %s: %w", ErrInternal, role, recipient, err)
	}

	receipt.Payouts = append(receipt.Payouts, Payout{
		Role:      role,
		Recipient: recipient,
		Account:   account,
		Amount:    amount,
	})

	return account, nil
}

func (s *EscrowService) closeEscrow(txn *Txn, battle Battle, recipient ledger.AccountID) error {
	residual, err := txn.Book.Close(battle.Escrow, recipient)
	if err != nil {
		return fmt.Errorf("%w: failed to close escrow: %w", ErrInternal, err)
	}

	if residual != 0 {
		return fmt.Errorf("%w: escrow closed with residual %d", ErrInternal, residual)
	}

	return nil
}

// finish destroys the battle record and stores the signed receipt.
func (s *EscrowService) finish(txn *Txn, battle Battle, receipt Receipt) (Outcome, error) {
	err := txn.DeleteBattle(battle.Address)
	if err != nil {
		return Outcome{}, err
	}

	signed, err := SignReceipt(receipt, []byte(s.SignatureSecret))
	if err != nil {
		return Outcome{}, err
	}

	err = txn.PutReceipt(signed)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Battle:  battle,
		Receipt: signed,
	}, nil
}
