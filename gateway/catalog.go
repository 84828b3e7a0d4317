package gateway

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"ctp-gateway-go/instrument"
)

// loadInstruments 装载当日合约表：同日缓存直接命中，否则发起全量查询。
// 全量查询的应答条数不限，单次超时不足以覆盖，因此等待按"有进展就续等"
// 的策略链式进行：一次超时后条数仍在增长则继续等，不再增长才判定失败。
func (s *TradeSession) loadInstruments() error {
	today := time.Now().Format("2006-01-02")
	if s.cache != nil {
		items, ok, err := s.cache.Load(today)
		if err != nil {
			s.log.Warn("读取合约缓存失败，改为查询", zap.Error(err))
		} else if ok {
			s.installCatalog(items)
			s.log.Info("已加载全部合约", zap.Int("count", len(items)))
			return nil
		}
	}

	const op = "获取所有合约"
	s.pendingInsts = make(map[string]instrument.Instrument)
	s.instCount.Store(0)
	s.corr.begin(op, reqIDQryInstrument)
	s.limiter.Wait()
	if err := checkSubmit(s.transport.ReqQryInstrument(InstrumentQuery{}, reqIDQryInstrument)); err != nil {
		return err
	}

	// 链式等待不走 waitOp，请求与耗时指标在这里配平。
	s.mon.RecordRequest(op)
	start := time.Now()
	lastCount := int64(0)
	for {
		err := s.corr.gate.wait(op, s.timeout)
		if err == nil {
			break
		}
		var te *TimeoutError
		if !errors.As(err, &te) {
			s.mon.ObserveLatency(op, time.Since(start).Seconds())
			if _, ok := err.(*RejectedError); ok {
				s.mon.RecordReject(op)
			}
			return err
		}
		count := s.instCount.Load()
		if count == lastCount {
			s.mon.ObserveLatency(op, time.Since(start).Seconds())
			s.mon.RecordTimeout(op)
			return err
		}
		s.log.Info("已获取部分合约", zap.Int64("count", count))
		lastCount = count
	}
	s.mon.ObserveLatency(op, time.Since(start).Seconds())

	items := s.pendingInsts
	s.pendingInsts = nil
	if s.cache != nil {
		if err := s.cache.Save(today, items); err != nil {
			s.log.Warn("保存合约缓存失败", zap.Error(err))
		} else {
			s.log.Info("已保存全部合约", zap.Int("count", len(items)))
		}
	}
	s.installCatalog(items)
	return nil
}

func (s *TradeSession) installCatalog(items map[string]instrument.Instrument) {
	s.catalog.Replace(items)
	s.mon.SetCatalogSize(s.catalog.Len())
	if unclassified := s.catalog.Unclassified(); len(unclassified) > 0 {
		s.log.Warn("部分期权代码无法提取标的",
			zap.Int("count", len(unclassified)), zap.Strings("codes", unclassified))
	}
}

// convertInstrument 把合约查询应答转换为目录记录。
func convertInstrument(f *InstrumentField) instrument.Instrument {
	var optionType *string
	switch f.OptionsType {
	case OptionCall:
		v := "call"
		optionType = &v
	case OptionPut:
		v := "put"
		optionType = &v
	}
	var expire *string
	if f.ExpireDate != "" {
		if t, err := time.Parse("20060102", f.ExpireDate); err == nil {
			v := t.Format("2006-01-02")
			expire = &v
		}
	}
	return instrument.Instrument{
		Symbol:           f.InstrumentID,
		Name:             f.InstrumentName,
		Exchange:         f.ExchangeID,
		Multiple:         f.VolumeMultiple,
		PriceTick:        f.PriceTick,
		ExpireDate:       expire,
		LongMarginRatio:  filterPrice(f.LongMarginRatio),
		ShortMarginRatio: filterPrice(f.ShortMarginRatio),
		OptionType:       optionType,
		StrikePrice:      filterPrice(f.StrikePrice),
		IsTrading:        f.IsTrading != 0,
	}
}
