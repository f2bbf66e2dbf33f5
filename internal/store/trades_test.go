package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type TradesSuite struct {
	suite.Suite
	db *DB
}

func (s *TradesSuite) SetupTest() {
	path := filepath.Join(s.T().TempDir(), "trader.db")
	db, err := Open(path, zerolog.Nop())
	require.NoError(s.T(), err)
	s.db = db
}

func (s *TradesSuite) TearDownTest() {
	require.NoError(s.T(), s.db.Close())
}

func (s *TradesSuite) draft() TradeDraft {
	return TradeDraft{
		Ticker:            "AAPL",
		Strategy:          StrategyShortPut,
		Sector:            "Technology",
		Strike:            190,
		Expiry:            "2026-07-17",
		DTE:               30,
		Contracts:         1,
		EntryPrice:        2.50,
		EntryDate:         time.Date(2026, 6, 17, 9, 31, 0, 0, time.UTC),
		EntrySpot:         195,
		MaxProfit:         250,
		MaxLoss:           18750,
		StopLossPrice:     5.00,
		ProfitTargetPrice: 1.25,
	}
}

func (s *TradesSuite) TestInsertAndGetOpenTrades() {
	id, err := s.db.InsertTrade(s.draft())
	require.NoError(s.T(), err)
	s.Greater(id, int64(0))

	open, err := s.db.GetOpenTrades()
	require.NoError(s.T(), err)
	s.Require().Len(open, 1)
	s.Equal("AAPL", open[0].Ticker)
	s.Equal(StatusOpen, open[0].Status)
	s.Equal(190.0, open[0].Strike)
}

func (s *TradesSuite) TestCloseTradeMovesItOutOfOpenSet() {
	id, err := s.db.InsertTrade(s.draft())
	require.NoError(s.T(), err)

	err = s.db.CloseTrade(id, ExitData{
		ExitPrice:  0.80,
		ExitDate:   time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC),
		ExitSpot:   205,
		ExitReason: ExitProfitTarget,
		PnLDollars: 170,
		PnLPercent: 68,
	})
	require.NoError(s.T(), err)

	open, err := s.db.GetOpenTrades()
	require.NoError(s.T(), err)
	s.Empty(open)

	closed, err := s.db.GetClosedTrades(10)
	require.NoError(s.T(), err)
	s.Require().Len(closed, 1)
	s.Equal(StatusClosed, closed[0].Status)
	s.Require().NotNil(closed[0].ExitReason)
	s.Equal(ExitProfitTarget, *closed[0].ExitReason)
	s.Require().NotNil(closed[0].PnLDollars)
	s.Equal(170.0, *closed[0].PnLDollars)
}

func (s *TradesSuite) TestGetTradeNotFound() {
	_, err := s.db.GetTrade(999)
	s.ErrorIs(err, ErrNotFound)
}

func (s *TradesSuite) TestGetTradesByTicker() {
	draftA := s.draft()
	draftB := s.draft()
	draftB.Ticker = "MSFT"

	_, err := s.db.InsertTrade(draftA)
	require.NoError(s.T(), err)
	_, err = s.db.InsertTrade(draftB)
	require.NoError(s.T(), err)

	aapl, err := s.db.GetTradesByTicker("AAPL", 10)
	require.NoError(s.T(), err)
	s.Require().Len(aapl, 1)
	s.Equal("AAPL", aapl[0].Ticker)
}

func TestTradesSuite(t *testing.T) {
	suite.Run(t, new(TradesSuite))
}
