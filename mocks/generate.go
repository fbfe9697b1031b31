package mocks

//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource DataSource
//go:generate mockgen -destination=./mock_cache.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/cache Cache
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/store Store
