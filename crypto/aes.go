package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

// EncryptAES encrypts data with AES-256-CBC and PKCS7 padding. The IV is all
// zeroes: the session key is negotiated fresh for every physical tap, and a
// deterministic IV keeps a security-delay resend byte-identical to the
// original frame.
func EncryptAES(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeFailedToEncryptAPDU, err)
	}

	padded := pkcs7Pad(data, block.BlockSize())
	ciphertext := make([]byte, len(padded))
	iv := make([]byte, block.BlockSize())
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// DecryptAES reverses EncryptAES. Ciphertext that is empty or not a multiple
// of the block size fails with invalidResponseApdu; bad padding (the usual
// symptom of a wrong key) fails with failedToDecryptApdu.
func DecryptAES(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeFailedToDecryptAPDU, err)
	}

	if len(data) == 0 || len(data)%block.BlockSize() != 0 {
		return nil, sdkerrors.New(sdkerrors.CodeInvalidResponseAPDU)
	}

	plaintext := make([]byte, len(data))
	iv := make([]byte, block.BlockSize())
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, data)

	return pkcs7Unpad(plaintext, block.BlockSize())
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(padding)}, padding)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, sdkerrors.New(sdkerrors.CodeFailedToDecryptAPDU)
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize || padding > len(data) {
		return nil, sdkerrors.New(sdkerrors.CodeFailedToDecryptAPDU)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, sdkerrors.New(sdkerrors.CodeFailedToDecryptAPDU)
		}
	}
	return data[:len(data)-padding], nil
}
