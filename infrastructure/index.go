package infrastructure

import (
	"sync"

	"fingerprint.gateman.io/infrastructure/logger"
	messagequeue "fingerprint.gateman.io/infrastructure/message_queue"
	startup "fingerprint.gateman.io/infrastructure/startUp"
)

type serverInterface interface {
	Start(services *startup.Services)
}

func StartServer() {
	services, err := startup.StartServices()
	if err != nil {
		logger.Error("could not start services", logger.LoggerOptions{Key: "error", Data: err.Error()})
		panic(err)
	}
	defer startup.CleanUpServices(services)

	var server serverInterface = &ginServer{}
	var wg sync.WaitGroup

	if services.UseQueue {
		wg.Add(1)
		go func() {
			defer wg.Done()
			messagequeue.StartQueue()
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		server.Start(services)
	}()

	wg.Wait()
}
