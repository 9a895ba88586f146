// internal/command/interfaces.go
package command

// Submitter 명령을 컨트롤 루프 큐에 넣는다 (control.Loop)
type Submitter interface {
	Submit(cmd Command) error
}

// Responder 명령 접수 결과 전송 (messaging.ResponseSender)
type Responder interface {
	SendResult(result Result) error
}
