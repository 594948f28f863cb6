package worker

import (
	"wallet-custody/internal/worker/tasks"
	"wallet-custody/pkg/logger"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Server 封装 Asynq Server (Worker)
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

// NewServer 初始化 Worker Server
func NewServer(addr string, password string, db int, concurrency int, poll *tasks.WithdrawalPollHandler) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger: logger.NewAsynqLogger(),
		},
	)

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeWithdrawalPoll, poll)

	return &Server{
		server: srv,
		mux:    mux,
	}
}

// Start 非阻塞启动
func (s *Server) Start() error {
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	logger.Info("Worker Server started", zap.Strings("tasks", []string{tasks.TypeWithdrawalPoll}))
	return nil
}

// Stop 停止 Worker
func (s *Server) Stop() {
	s.server.Stop()
	s.server.Shutdown()
}
