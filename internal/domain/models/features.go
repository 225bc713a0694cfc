package models

import "encoding/json"

// FeatureSchemaVersion is bumped whenever a named field is added or its
// meaning changes. Readers use it to interpret archived events.
const FeatureSchemaVersion = 1

// maxExtraFeatures bounds the experimental side-map so a misbehaving producer
// cannot grow persisted records without bound.
const maxExtraFeatures = 32

// WickFeatures is the flat feature vector computed for one wick event.
// Every field has a neutral zero value so a complete vector can always be
// built even when upstream data is missing. Fields not in the named schema
// survive a decode/encode round trip through Extra.
type WickFeatures struct {
	SchemaVersion int `json:"schema_version"`

	// Wick geometry
	WickSizePct       float64 `json:"wick_size_pct"`
	BodySizePct       float64 `json:"body_size_pct"`
	WickToBodyRatio   float64 `json:"wick_to_body_ratio"`
	ProtrusionPct     float64 `json:"protrusion_pct"`
	RejectionVelocity float64 `json:"rejection_velocity"`
	DisplacementIdx   float64 `json:"displacement_idx"`
	FinishedAuction   bool    `json:"finished_auction"`
	UnfinishedBiz     bool    `json:"unfinished_business"`
	ZeroPrintFlag     bool    `json:"zero_print_flag"`
	ImbalanceTrap     float64 `json:"imbalance_trap_score"`

	// Order flow
	DeltaAtWick        float64 `json:"delta_at_wick"`
	DeltaPrevPivot     float64 `json:"delta_prev_pivot"`
	DeltaDivergence    bool    `json:"delta_divergence_flag"`
	CVDSlope10         float64 `json:"cvd_slope_10"`
	AbsorptionFlag     bool    `json:"absorption_flag"`
	ExhaustionFlag     bool    `json:"exhaustion_flag"`
	TradeFreqSpike     float64 `json:"trade_frequency_spike"`
	BidAskRefreshRate  float64 `json:"bid_ask_refresh_rate"`
	IcebergFlag        bool    `json:"iceberg_flag"`

	// Liquidity
	Spread            float64 `json:"spread"`
	L1DepthBid        float64 `json:"l1_depth_bid"`
	L1DepthAsk        float64 `json:"l1_depth_ask"`
	L5DepthBid        float64 `json:"l5_depth_bid"`
	L5DepthAsk        float64 `json:"l5_depth_ask"`
	DepthImbalance    float64 `json:"depth_imbalance"`
	LiquidityVoidFlag bool    `json:"liquidity_void_flag"`
	StackedImbalance  bool    `json:"stacked_imbalance_nearby"`

	// Derivatives
	OIChangePct       float64 `json:"oi_change_pct"`
	OIDirection       string  `json:"oi_direction"`
	OILiquidationFlag bool    `json:"oi_liquidation_flag"`
	LiqDensity        float64 `json:"liquidation_density"`
	FundingRateNow    float64 `json:"funding_rate_now"`
	FundingRateNext   float64 `json:"funding_rate_next"`
	FundingDistance   float64 `json:"funding_distance_to_timestamp"`

	// VWAP
	SessionVWAPDistance float64 `json:"session_vwap_distance"`
	GlobalVWAPDistance  float64 `json:"global_vwap_distance"`
	VWAPBand1SD         bool    `json:"vwap_band_flag_1sd"`
	VWAPBand2SD         bool    `json:"vwap_band_flag_2sd"`
	VWAPMeanReversion   float64 `json:"vwap_mean_reversion_score"`

	// Regime / macro
	HurstExponent    float64 `json:"hurst_exponent"`
	ADX14            float64 `json:"adx_14"`
	ATR14            float64 `json:"atr_14"`
	TrendStrength    float64 `json:"trend_strength"`
	BTCDominance     float64 `json:"btc_d"`
	USDTDominance    float64 `json:"usdt_d"`
	USDTTrend        string  `json:"usdt_trend"`
	ETHBTCTrend      float64 `json:"eth_btc_trend"`
	RollingBetaBTC30 float64 `json:"rolling_beta_btc_30"`
	RollingBetaBTC90 float64 `json:"rolling_beta_btc_90"`
	CorrelationDrift float64 `json:"correlation_drift"`

	// Session timing
	SessionLabel      string  `json:"session_label"`
	MinutesIntoSess   int     `json:"minutes_into_session"`
	MinutesUntilClose int     `json:"minutes_until_session_close"`
	HourOfDay         int     `json:"hour_of_day"`
	DayOfWeek         int     `json:"day_of_week"`
	WeekendFlag       bool    `json:"weekend_flag"`
	CMECloseProximity float64 `json:"cme_close_proximity"`

	// Market profile
	FreshSDZoneFlag    bool    `json:"fresh_sd_zone_flag"`
	SDZonePenetration  float64 `json:"sd_zone_penetration_pct"`
	POCDistance        float64 `json:"poc_distance"`
	VAHDistance        float64 `json:"vah_distance"`
	VALDistance        float64 `json:"val_distance"`
	ValueRejectionFlag bool    `json:"value_rejection_flag"`

	// Extra carries unknown fields from newer producers. Bounded; not a
	// substitute for the named schema.
	Extra map[string]json.RawMessage `json:"-"`
}

// NewWickFeatures returns a vector with all fields at their neutral defaults.
func NewWickFeatures() WickFeatures {
	return WickFeatures{
		SchemaVersion: FeatureSchemaVersion,
		OIDirection:   "inc",
		SessionLabel:  "unknown",
		USDTTrend:     "NEUTRAL",
		HurstExponent: 0.5,
	}
}

type wickFeaturesAlias WickFeatures

// MarshalJSON emits the named fields plus any Extra side-map entries.
func (f WickFeatures) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(wickFeaturesAlias(f))
	if err != nil {
		return nil, err
	}
	if len(f.Extra) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range f.Extra {
		if _, known := merged[k]; !known {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes the named fields and keeps unknown keys in Extra so
// records written by a newer schema survive a round trip.
func (f *WickFeatures) UnmarshalJSON(b []byte) error {
	var alias wickFeaturesAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	known, err := json.Marshal(alias)
	if err != nil {
		return err
	}
	var knownKeys map[string]json.RawMessage
	if err := json.Unmarshal(known, &knownKeys); err != nil {
		return err
	}
	for k := range knownKeys {
		delete(raw, k)
	}
	*f = WickFeatures(alias)
	if len(raw) > 0 {
		f.Extra = make(map[string]json.RawMessage, len(raw))
		for k, v := range raw {
			if len(f.Extra) >= maxExtraFeatures {
				break
			}
			f.Extra[k] = v
		}
	}
	return nil
}
