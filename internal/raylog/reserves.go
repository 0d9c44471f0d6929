package raylog

// Post-trade reserves are derived from the logged pre-trade reserves.

func (e *AddLiquidity) settle() error {
	e.PoolCoinAfter = e.PoolCoinBefore + e.DeductCoin
	e.PoolPcAfter = e.PoolPcBefore + e.DeductPc
	e.PoolLpAfter = e.PoolLpBefore + e.MintLp
	return nil
}

func (e *RemoveLiquidity) settle() error {
	var err error
	if e.PoolCoinAfter, err = sub(e.PoolCoinBefore, e.OutCoin); err != nil {
		return err
	}
	if e.PoolPcAfter, err = sub(e.PoolPcBefore, e.OutPc); err != nil {
		return err
	}
	e.PoolLpAfter, err = sub(e.PoolLpBefore, e.WithdrawLp)
	return err
}

func (e *SwapBaseIn) settle() error {
	var err error
	if e.BoughtCoin() {
		e.PoolPcAfter = e.PoolPcBefore + e.AmountIn
		e.PoolCoinAfter, err = sub(e.PoolCoinBefore, e.AmountOut)
		return err
	}
	e.PoolCoinAfter = e.PoolCoinBefore + e.AmountIn
	e.PoolPcAfter, err = sub(e.PoolPcBefore, e.AmountOut)
	return err
}

func (e *SwapBaseOut) settle() error {
	var err error
	if e.BoughtCoin() {
		e.PoolPcAfter = e.PoolPcBefore + e.DeductIn
		e.PoolCoinAfter, err = sub(e.PoolCoinBefore, e.AmountOut)
		return err
	}
	e.PoolCoinAfter = e.PoolCoinBefore + e.DeductIn
	e.PoolPcAfter, err = sub(e.PoolPcBefore, e.AmountOut)
	return err
}

func sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrReserveUnderflow
	}
	return a - b, nil
}
