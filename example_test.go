package incoming

import (
	"errors"
	"fmt"
	"io"
)

func ExampleMessage() {
	m, err := NewMessage(MessageInit{
		Method:     "POST",
		URL:        "https://example.com",
		Header:     Header{"content-type": {"text/plain"}},
		Body:       []byte("Incoming Message hello world"),
		RemoteAddr: "127.0.0.1",
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(m.Header()["content-length"][0])

	for chunk := range m.Chunks() {
		fmt.Println(string(chunk))
	}
	for range m.Chunks() {
		fmt.Println("unreachable")
	}
	fmt.Println(m.State())
	// Output:
	// 28
	// Incoming Message hello world
	// drained
}

func ExampleMessage_Body() {
	m, _ := NewMessage(MessageInit{Method: "POST", URL: "http://example.com", Body: []byte("once")})

	first, second := m.Body(), m.Body()
	b, err := io.ReadAll(first)
	fmt.Println(string(b), err)

	_, err = io.ReadAll(second)
	fmt.Println(errors.Is(err, ErrStreamConsumed))
	// Output:
	// once <nil>
	// true
}

func ExampleRequest_Prepare() {
	m, _ := NewMessage(MessageInit{Method: "POST", URL: "http://example.com", Body: []byte("hello")})
	for range m.Chunks() {
	}

	_, err := MessageRequest(m).Prepare()
	fmt.Println(err)
	// Output:
	// message cannot be used as a request body: stream already consumed
}
