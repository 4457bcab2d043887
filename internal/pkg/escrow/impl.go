package escrow

import (
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/samber/do/v2"
	"github.com/vreid/escrow/internal/pkg/common"
	"github.com/vreid/escrow/internal/pkg/ledger"
	bolt "go.etcd.io/bbolt"
)

const (
	BattleSeed       = "battle"
	TokenAccountSeed = "token_account"
)

type EscrowService struct {
	DatabaseService *common.DatabaseService
	Logger          *log.Logger

	EventSink chan<- Event
	Derive    ledger.Deriver

	SignatureSecret string

	Now func() time.Time
}

func NewEscrowService(i do.Injector) (*EscrowService, error) {
	databaseService := do.MustInvoke[*common.DatabaseService](i)
	logger := do.MustInvoke[*log.Logger](i)
	eventSink := do.MustInvokeNamed[chan<- Event](i, "event-sink")
	signatureSecret := do.MustInvokeNamed[string](i, "signature-secret")

	result := &EscrowService{
		DatabaseService: databaseService,
		Logger:          logger,

		EventSink: eventSink,
		Derive:    ledger.DeriveAddress,

		SignatureSecret: signatureSecret,

		Now: time.Now,
	}

	echoService, err := do.Invoke[*common.EchoService](i)
	if err != nil {
		return nil, fmt.Errorf("failed to create echo service: %w", err)
	}

	echoService.Register(result.Routes)

	return result, nil
}

func (s *EscrowService) BattleAddress(playerOne ledger.Identity, battleID uint64) ledger.AccountID {
	return s.Derive(BattleSeed, []ledger.Identity{playerOne}, battleID)
}

func (s *EscrowService) EscrowAddress(playerOne ledger.Identity, battleID uint64) ledger.AccountID {
	return s.Derive(TokenAccountSeed, []ledger.Identity{playerOne}, battleID)
}

func (s *EscrowService) Initialize(caller ledger.Identity, request InitializeRequest) (Config, error) {
	var config Config

	err := s.update(func(txn *Txn) error {
		if txn.HasConfig() {
			return fmt.Errorf("%w: configuration already initialized", ErrInternal)
		}

		err := ValidateFeeBps(request.FeeBps)
		if err != nil {
			return err
		}

		unit, err := txn.Book.Unit(request.ValueUnit)
		if err != nil {
			return err
		}

		stakePrice, err := ledger.Scale(request.Price, unit.Decimals)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInternal, err)
		}

		config = Config{
			Admin:      caller,
			ValueUnit:  unit.ID,
			FeeBps:     request.FeeBps,
			StakePrice: stakePrice,
		}

		return txn.PutConfig(config)
	})
	if err != nil {
		return Config{}, err
	}

	s.Logger.Infoj(log.JSON{"op": "initialize", "admin": config.Admin, "unit": config.ValueUnit,
		"fee_bps": config.FeeBps, "stake_price": config.StakePrice})
	s.emit(Event{Kind: EventConfigUpdated, Config: &config})

	return config, nil
}

func (s *EscrowService) UpdateFeeBps(caller ledger.Identity, feeBps uint64) (Config, error) {
	return s.updateConfig(caller, "update_fee_bps", func(_ *Txn, config *Config) error {
		err := ValidateFeeBps(feeBps)
		if err != nil {
			return err
		}

		config.FeeBps = feeBps

		return nil
	})
}

// UpdateStakePrice scales rawPrice by the decimals of the unit configured
// at the time of the call.
func (s *EscrowService) UpdateStakePrice(caller ledger.Identity, rawPrice uint64) (Config, error) {
	return s.updateConfig(caller, "update_stake_price", func(txn *Txn, config *Config) error {
		unit, err := txn.Book.Unit(config.ValueUnit)
		if err != nil {
			return fmt.Errorf("%w: configured unit: %w", ErrInternal, err)
		}

		stakePrice, err := ledger.Scale(rawPrice, unit.Decimals)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInternal, err)
		}

		config.StakePrice = stakePrice

		return nil
	})
}

func (s *EscrowService) UpdateValueUnit(caller ledger.Identity, unitID ledger.UnitID) (Config, error) {
	return s.updateConfig(caller, "update_value_unit", func(txn *Txn, config *Config) error {
		unit, err := txn.Book.Unit(unitID)
		if err != nil {
			return err
		}

		config.ValueUnit = unit.ID

		return nil
	})
}

func (s *EscrowService) Config() (ConfigView, error) {
	var view ConfigView

	err := s.view(func(txn *Txn) error {
		config, err := txn.Config()
		if err != nil {
			return err
		}

		unit, err := txn.Book.Unit(config.ValueUnit)
		if err != nil {
			return fmt.Errorf("%w: configured unit: %w", ErrInternal, err)
		}

		view = ConfigView{
			Config:            config,
			Decimals:          unit.Decimals,
			StakePriceDisplay: ledger.Format(config.StakePrice, unit.Decimals),
		}

		return nil
	})

	return view, err
}

func (s *EscrowService) Battle(playerOne ledger.Identity, battleID uint64) (Battle, error) {
	var battle Battle

	err := s.view(func(txn *Txn) error {
		var err error

		battle, err = txn.Battle(s.BattleAddress(playerOne, battleID))

		return err
	})

	return battle, err
}

func (s *EscrowService) Receipt(id string) (Receipt, error) {
	var receipt Receipt

	err := s.view(func(txn *Txn) error {
		var err error

		receipt, err = txn.Receipt(id)

		return err
	})

	return receipt, err
}

func (s *EscrowService) updateConfig(caller ledger.Identity, op string, mutate func(txn *Txn, config *Config) error) (Config, error) {
	var config Config

	err := s.update(func(txn *Txn) error {
		var err error

		config, err = txn.Config()
		if err != nil {
			return err
		}

		if caller != config.Admin {
			return fmt.Errorf("%w: %s is not the admin", ErrUnauthorized, caller)
		}

		err = mutate(txn, &config)
		if err != nil {
			return err
		}

		return txn.PutConfig(config)
	})
	if err != nil {
		return Config{}, err
	}

	s.Logger.Infoj(log.JSON{"op": op, "unit": config.ValueUnit, "fee_bps": config.FeeBps,
		"stake_price": config.StakePrice})
	s.emit(Event{Kind: EventConfigUpdated, Config: &config})

	return config, nil
}

// update runs fn as one atomic unit: any error rolls back every write,
// including ledger transfers.
func (s *EscrowService) update(fn func(txn *Txn) error) error {
	//nolint:wrapcheck
	return s.DatabaseService.DB.Update(func(tx *bolt.Tx) error {
		txn, err := NewTxn(tx)
		if err != nil {
			return err
		}

		return fn(txn)
	})
}

func (s *EscrowService) view(fn func(txn *Txn) error) error {
	//nolint:wrapcheck
	return s.DatabaseService.DB.View(func(tx *bolt.Tx) error {
		txn, err := NewTxn(tx)
		if err != nil {
			return err
		}

		return fn(txn)
	})
}

func (s *EscrowService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}

	return s.Now()
}

func (s *EscrowService) emit(event Event) {
	if s.EventSink == nil {
		return
	}

	event.Timestamp = s.now().Unix()

	select {
	case s.EventSink <- event:
	default:
		s.Logger.Warnj(log.JSON{"msg": "event sink full, dropping event", "kind": event.Kind})
	}
}
